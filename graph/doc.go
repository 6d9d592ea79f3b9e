// Package graph implements core.ResourceClient against a Microsoft Graph
// compatible API: subscription list and create, and the $batch endpoint.
package graph
