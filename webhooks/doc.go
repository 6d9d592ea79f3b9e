// Package webhooks contains the inbound notification endpoint.
//
// A request carrying a validationToken query parameter is the provider's
// subscription handshake and is answered by echoing the token. Any other
// request is a delivery: empty or undecodable payloads are acknowledged with
// 202 and start nothing, a non-empty collection starts one notification
// orchestration and returns its instance id.
package webhooks
