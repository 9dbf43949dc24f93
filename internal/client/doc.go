// Package client implements the agency side of the lottery protocol.
//
// An agency loads its bets from a CSV file, sends them to the server in
// batches, one batch per connection, and then announces that it has
// finished. On that same connection it asks for its winners and waits for
// the answer, which only arrives once every agency has finished.
//
// Example:
//
//	c, err := client.New(client.Config{ID: 1, ServerAddress: "server:12345"})
//	if err != nil {
//		return err
//	}
//	bets, err := client.LoadBets("agency-1.csv", 1)
//	if err != nil {
//		return err
//	}
//	winners, err := c.Run(ctx, bets)
package client
