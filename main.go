package main

import "github.com/edgeflare/dbrest/cmd/dbrest"

func main() {
	dbrest.Main()
}
