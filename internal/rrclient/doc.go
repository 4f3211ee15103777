// Package rrclient turns MQTT publish/subscribe into request/response
// exchanges and long-lived streams.
//
// A request subscribes to every response topic, waits for the SUBACKs,
// publishes, and then waits for the first message on a response topic
// whose correlation token (read from the JSON payload at a configured path)
// equals the token of the request. Subscriptions are reference counted and
// shared by concurrent requests. Once idle they are kept for reuse and
// evicted oldest first when a new request needs the capacity.
//
// A stream owns one topic filter for as long as it is open and reports
// subscription status changes and incoming messages through callbacks,
// delivered in order on a goroutine dedicated to that stream.
//
// # Usage
//
//	rr, err := rrclient.New(mqttClient, rrclient.Options{
//	    MaxRequestResponseSubscriptions: 6,
//	    MaxStreamingSubscriptions:       10,
//	    OperationTimeout:                30 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	defer rr.Close()
//
//	resp, err := rr.SubmitRequest(ctx, rrclient.RequestOptions{...})
package rrclient
