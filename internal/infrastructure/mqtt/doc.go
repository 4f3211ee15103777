// Package mqtt provides the device's MQTT connection to an IoT endpoint.
//
// This package manages:
//   - Connection with mutual TLS (X.509 client certificate) and auto-reconnect
//   - Message publishing at QoS 0 or 1
//   - Topic subscriptions with wildcard support, restored after reconnect
//   - Connection state callbacks and health checks
//
// # Architecture
//
// The client is the pub/sub layer under the request/response transport:
//
//	service clients → servicemodel → rrclient → mqtt → endpoint
//
// Topic filter matching and wire encoding are handled by paho.
//
// # Security Considerations
//
//   - TLS is required whenever a client certificate is configured
//   - Private keys are read from disk at connect time and never logged
//   - Port 443 connections negotiate MQTT through ALPN
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("$aws/things/abc/shadow/get/accepted", 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
