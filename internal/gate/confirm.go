package gate

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pquerna/otp/totp"

	"rotorbot/internal/model"
)

// ConfirmGate asks the operator at the terminal before a trade proceeds.
// With a TOTP secret configured, a bare "yes" is not enough — the operator
// must also enter the current code from their authenticator, so a leaked
// terminal session alone cannot approve trades.
type ConfirmGate struct {
	in         *bufio.Reader
	out        io.Writer
	totpSecret string // empty disables the second factor
}

// NewConfirmGate creates an interactive confirmation gate reading from
// stdin. totpSecret may be empty.
func NewConfirmGate(totpSecret string) *ConfirmGate {
	return &ConfirmGate{
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		totpSecret: totpSecret,
	}
}

// NewConfirmGateIO creates a confirmation gate over explicit streams (tests).
func NewConfirmGateIO(in io.Reader, out io.Writer, totpSecret string) *ConfirmGate {
	return &ConfirmGate{
		in:         bufio.NewReader(in),
		out:        out,
		totpSecret: totpSecret,
	}
}

func (g *ConfirmGate) Name() string { return "confirm" }

func (g *ConfirmGate) Approve(ctx context.Context, p model.Proposal) (bool, string, error) {
	fmt.Fprintf(g.out, "Do you want to proceed with %s %s -> %s? (yes/no): ",
		strings.ToLower(string(p.Action)), p.FromAsset, p.ToAsset)

	answer, err := g.readLine()
	if err != nil {
		return false, "", fmt.Errorf("confirm: read answer: %w", err)
	}
	if !strings.EqualFold(answer, "yes") {
		return false, "declined by operator", nil
	}

	if g.totpSecret != "" {
		fmt.Fprint(g.out, "Enter the current TOTP code: ")
		code, err := g.readLine()
		if err != nil {
			return false, "", fmt.Errorf("confirm: read code: %w", err)
		}
		if !totp.Validate(code, g.totpSecret) {
			return false, "invalid TOTP code", nil
		}
	}

	return true, "confirmed by operator", nil
}

func (g *ConfirmGate) readLine() (string, error) {
	line, err := g.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
