// Package signal sends notifications through Signal Messenger via signal-cli.
//
// The client wraps the signal-cli command-line tool, which must be installed
// and registered for the sending number:
//
//	signal-cli -u +15551234567 register
//	signal-cli -u +15551234567 verify CODE
//
// Messages go either to a phone number (SendMessage) or to a group looked up
// by name (SendGroupMessage). Credentials live in the signal-cli data
// directory (typically ~/.local/share/signal-cli/).
//
// Example:
//
//	client, err := signal.NewClient("+15551234567")
//	if err != nil {
//	    return err
//	}
//	err = client.SendMessage(ctx, "+15559876543", "Focus session starts in 1 minute")
package signal
