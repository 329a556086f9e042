// Package mqtt implements the device transports for both Deye IoT
// platforms behind one Client interface.
//
// Appliances live on one of two backends, discovered per device through
// cloudapi.DeviceInfo.Platform. Classic appliances exchange binary
// frames over a vendor MQTT broker; Fog appliances report JSON thing
// properties over a cloud broker and accept writes only through the
// REST API. NewClient selects the matching transport once, at
// construction:
//
//	client, err := mqtt.NewClient(api, info.Platform)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Disconnect()
//
//	unsubscribe := client.SubscribeStateChange(info.ProductID, info.DeviceID,
//	    func(state *device.State) {
//	        log.Printf("state: %s", state)
//	    })
//	defer unsubscribe()
//
// # Connection Lifecycle
//
// Connect fetches broker coordinates and per-user credentials from the
// cloud, then establishes the TLS connection; credential errors from
// the cloud surface to the caller unchanged. Once connected, the
// underlying paho client reconnects on its own. Every time a connection
// is (re)established the transport re-subscribes all topics that still
// have callbacks and flushes commands queued while offline, in order.
// When a connection drops unexpectedly the transport refreshes its
// broker credentials from the cloud before the next reconnect attempt,
// so a session lost to an expired token comes back without operator
// help. Disconnect tears the connection down without any of that.
//
// # Callback Delivery
//
// Subscriber callbacks never run on the broker I/O goroutine: inbound
// messages are handed to a single dispatch goroutine owned by the
// client, which invokes the callbacks for a topic in registration
// order. A malformed payload is dropped without reaching any callback,
// and a panicking callback is recovered and logged; neither stops
// dispatch. Callbacks should not block: they stall delivery of every
// message behind them.
//
// Subscribe and the returned unsubscribe closures are cheap bookkeeping
// wherever possible. Only the first callback on a topic subscribes on
// the wire and only removing the last one unsubscribes (and then only
// while connected); unsubscribe closures are idempotent and safe after
// Disconnect.
//
// # Ordering of Connect
//
// The topic space of both platforms depends on values the cloud hands
// out at connect time (the Classic account endpoint, the Fog account
// username). Subscribe, PublishCommand and QueryDeviceState therefore
// require a successful Connect first.
package mqtt
