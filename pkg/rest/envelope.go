package rest

import (
	pg "github.com/edgeflare/dbrest/pkg/pgx"
)

// TagResponse tags every envelope this package writes.
const TagResponse = "response"

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Tag    string `json:"tag"`
	Status bool   `json:"status"`
}

// NewEnvelope returns an envelope without payload.
func NewEnvelope(tag string, status bool) Envelope {
	return Envelope{Tag: tag, Status: status}
}

// Failure is the envelope written for any failed request.
type Failure struct {
	Tag    string `json:"tag"`
	Status bool   `json:"status"`
	Error  string `json:"error"`
}

// NewFailure returns a failure envelope carrying msg.
func NewFailure(tag, msg string) Failure {
	return Failure{Tag: tag, Status: false, Error: msg}
}

// SelectResult is the envelope of a successful select.
type SelectResult struct {
	Tag       string   `json:"tag"`
	Status    bool     `json:"status"`
	TableName string   `json:"tableName"`
	Rows      []pg.Row `json:"rows"`
}

// WorkOrderResult is the envelope of a stored work order.
type WorkOrderResult struct {
	Tag            string `json:"tag"`
	Status         bool   `json:"status"`
	NoOrdenTrabajo string `json:"noOrdenTrabajo"`
	CorrelativoOt  string `json:"correlativo_ot"`
}
