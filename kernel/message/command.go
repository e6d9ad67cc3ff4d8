package message

// Command is a request sent from the host to the kernel.
//
// Token is assigned by the sender when empty and is shared with every event
// the kernel produces in response.
type Command struct {
	Body  any
	Kind  Kind
	Token string
}

// NewCommand wraps body into a command, inferring its kind from the body.
func NewCommand(body any) *Command {
	return &Command{
		Kind: KindOf(body),
		Body: body,
	}
}

// WithToken returns a copy of the command carrying token.
func (c *Command) WithToken(token string) *Command {
	cp := *c
	cp.Token = token

	return &cp
}
