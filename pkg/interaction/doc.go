// Package interaction is the client side of the device protocol.
//
// A Client owns one connection. It assigns message ids, matches responses
// to pending requests and hands pushed notifications to a handler:
//
//	conn, _ := transport.NewClient(transport.ClientConfig{}).Connect(ctx, "127.0.0.1:48898")
//	client := interaction.NewClient(conn)
//	defer client.Close()
//
//	client.SetNotificationHandler(func(n *wire.Notification) {
//	    fmt.Println(n.Handle, n.Value())
//	})
//
//	value, err := client.Read(ctx, 1, 1)
//	handle, err := client.AddNotification(ctx, 1, 1, 500*time.Millisecond)
//
// Non-success statuses are returned as *wire.StatusError.
package interaction
