// Package rest serves the generic select and insert operations and the work
// order workflow over HTTP.
//
// Every endpoint is a GET that takes its JSON payload from a query parameter
// and answers with an envelope:
//
//	GET {base}/isOnline
//	  {"tag":"response","status":true}
//
//	GET {base}/getDataFromTable?select={"tableName":"clientes","columns":["id","nombre"],"whereCondition":"id = ?","whereValues":["1"]}
//	  {"tag":"response","status":true,"tableName":"clientes","rows":[{"id":"1","nombre":"Ana"}]}
//
//	GET {base}/insertDataIntoTable?insert={"rows":[{"tableName":"t","columns":["a"],"values":[{"type":"INTEGER","value":"1"}]}]}
//	  {"tag":"response","status":true}
//
//	GET {base}/insertOrdenTrabajo?insert={"encabezado":{...},"detalle":[...],"adjuntos":[...],"parametros":{"empresa":1,"area":2,"tipo_ot":3}}
//	  {"tag":"response","status":true,"noOrdenTrabajo":"43","correlativo_ot":"OT-2-43"}
//
// Failures are reported in the body with HTTP 200:
//
//	{"tag":"response","status":false,"error":"..."}
//
// The base path defaults to /Service.
package rest
