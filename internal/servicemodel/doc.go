// Package servicemodel executes MQTT service operations described by
// declarative tables.
//
// A ServiceModel maps operation names to the functions that build topics,
// payloads and correlation tokens for a request, and maps input shape names
// to validators. Execute runs one request/response exchange through a
// Transport and decodes the answer by the exact topic it arrived on;
// CreateStream wraps a long-lived subscription that decodes every message.
//
// Failures are reported as *ServiceError:
//
//	resp, err := servicemodel.Execute[shadow.GetShadowResponse](ctx, client, "GetNamedShadow", req)
//	switch {
//	case errors.Is(err, servicemodel.ErrRejected):
//	    rej, _ := servicemodel.Rejection[shadow.ErrorResponse](err)
//	case errors.Is(err, servicemodel.ErrTransport):
//	    // err unwraps to the rrclient error
//	}
package servicemodel
