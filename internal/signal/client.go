package signal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandRunner executes signal-cli with args and returns its stdout and stderr.
type CommandRunner func(ctx context.Context, args ...string) (stdout, stderr string, err error)

// Client sends Signal messages via signal-cli
type Client struct {
	userID string // The phone number registered with signal-cli (e.g., "+15551234567")
	run    CommandRunner
}

// NewClient creates a new Signal client for the specified phone number.
// The phone number must be already registered with signal-cli.
func NewClient(userID string) (*Client, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}

	// Verify signal-cli is installed by checking if the command exists
	if _, err := exec.LookPath("signal-cli"); err != nil {
		return nil, &SignalError{
			Op:     "initialize",
			UserID: userID,
			Err:    fmt.Errorf("signal-cli not found in PATH. Please install signal-cli: https://github.com/AsamK/signal-cli"),
		}
	}

	return &Client{userID: userID, run: execRunner}, nil
}

// NewClientWithRunner creates a client that executes commands through run.
func NewClientWithRunner(userID string, run CommandRunner) (*Client, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("command runner cannot be nil")
	}
	return &Client{userID: userID, run: run}, nil
}

func validateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("userID cannot be empty")
	}
	// signal-cli requires E.164 numbers
	if !strings.HasPrefix(userID, "+") {
		return fmt.Errorf("userID must be a phone number starting with + (e.g., +15551234567)")
	}
	return nil
}

// UserID returns the phone number associated with this client
func (c *Client) UserID() string {
	return c.userID
}

func execRunner(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "signal-cli", args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// SendMessage sends a text message to a Signal user
func (c *Client) SendMessage(ctx context.Context, recipient string, message string) error {
	if recipient == "" {
		return &SignalError{Op: "send", UserID: c.userID, Err: fmt.Errorf("recipient cannot be empty"), Invalid: true}
	}
	if message == "" {
		return &SignalError{Op: "send", UserID: c.userID, Err: fmt.Errorf("message cannot be empty"), Invalid: true}
	}
	if !strings.HasPrefix(recipient, "+") {
		return &SignalError{
			Op:      "send",
			UserID:  c.userID,
			Err:     fmt.Errorf("recipient must be a phone number starting with + (e.g., +15551234567)"),
			Invalid: true,
		}
	}

	// signal-cli -u USER_ID send RECIPIENT -m MESSAGE
	_, stderr, err := c.run(ctx, "-u", c.userID, "send", recipient, "-m", message)
	if err != nil {
		return &SignalError{
			Op:     "send",
			UserID: c.userID,
			Err:    fmt.Errorf("failed to send message: %w (stderr: %s)", err, stderr),
		}
	}
	return nil
}

// SendGroupMessage sends a text message to the group with the given name
func (c *Client) SendGroupMessage(ctx context.Context, groupName string, message string) error {
	if groupName == "" {
		return &SignalError{Op: "sendGroup", UserID: c.userID, Err: fmt.Errorf("groupName cannot be empty"), Invalid: true}
	}
	if message == "" {
		return &SignalError{Op: "sendGroup", UserID: c.userID, Err: fmt.Errorf("message cannot be empty"), Invalid: true}
	}

	groupID, err := c.groupID(ctx, groupName)
	if err != nil {
		return &SignalError{Op: "sendGroup", UserID: c.userID, Err: fmt.Errorf("group not found: %w", err)}
	}

	// signal-cli -u USER_ID send -g GROUP_ID -m MESSAGE
	_, stderr, err := c.run(ctx, "-u", c.userID, "send", "-g", groupID, "-m", message)
	if err != nil {
		return &SignalError{
			Op:     "sendGroup",
			UserID: c.userID,
			Err:    fmt.Errorf("failed to send group message: %w (stderr: %s)", err, stderr),
		}
	}
	return nil
}

func (c *Client) groupID(ctx context.Context, groupName string) (string, error) {
	groups, err := c.ListGroups(ctx)
	if err != nil {
		return "", err
	}
	for _, g := range groups {
		if g.Name == groupName {
			return g.ID, nil
		}
	}
	return "", fmt.Errorf("group %q not found", groupName)
}

// ListGroups returns the groups the user is a member of
func (c *Client) ListGroups(ctx context.Context) ([]Group, error) {
	stdout, stderr, err := c.run(ctx, "-u", c.userID, "listGroups")
	if err != nil {
		return nil, &SignalError{
			Op:     "listGroups",
			UserID: c.userID,
			Err:    fmt.Errorf("failed to list groups: %w (stderr: %s)", err, stderr),
		}
	}
	return parseGroups(stdout), nil
}

// parseGroups reads listGroups output, one group per line:
//
//	Id: <base64> Name: <name> Description: ... Active: true Blocked: false
func parseGroups(out string) []Group {
	groups := []Group{}
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Id: ") {
			continue
		}
		rest := strings.TrimPrefix(line, "Id: ")
		g := Group{}
		if i := strings.Index(rest, " Name: "); i >= 0 {
			g.ID = rest[:i]
			name := rest[i+len(" Name: "):]
			for _, field := range []string{" Description: ", " Active: ", " Blocked: "} {
				if j := strings.Index(name, field); j >= 0 {
					name = name[:j]
				}
			}
			g.Name = strings.TrimSpace(name)
		} else {
			g.ID = strings.Fields(rest)[0]
		}
		groups = append(groups, g)
	}
	return groups
}
