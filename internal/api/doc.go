// Package api handles incoming HTTP requests: routing targets, request
// validation and response formatting. Handlers translate HTTP to calls on
// the ledger, assessment and auth services and map their errors to status
// codes with MapErrorToStatusCode.
package api
