// Package shadow is the device shadow service client.
//
// Classic (unnamed) and named shadows are supported. Every request/response
// operation subscribes to its accepted and rejected topics, publishes with a
// fresh client token and returns either the decoded accepted document or a
// *servicemodel.ServiceError whose ModeledError is an ErrorResponse.
//
// Usage:
//
//	client := shadow.NewClient(rr)
//	doc, err := client.GetNamedShadow(ctx, shadow.GetNamedShadowRequest{
//	    ThingName:  "kitchen-sensor",
//	    ShadowName: "config",
//	})
package shadow
