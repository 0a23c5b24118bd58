package biostar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"guntamatic_bridge/internal/models"
)

var (
	// ErrNoWriteAccess is returned when a write is attempted without a
	// configured write key. No network call is made in that case.
	ErrNoWriteAccess = errors.New("no write key configured")

	// ErrWriteRejected means the device acknowledged the command with an
	// explicit error. Terminal for the attempt chain.
	ErrWriteRejected = errors.New("device rejected command")

	// ErrWriteFailed means no attempt produced a conclusive success.
	ErrWriteFailed = errors.New("write command failed")
)

// ackOutcome classifies one write attempt. The dispatcher walks its attempt
// chain until the first success or explicit reject; inconclusive outcomes
// let the chain continue.
type ackOutcome int

const (
	ackInconclusive ackOutcome = iota
	ackSuccess
	ackRejected
)

// synProgram is the parameter code for heating program selection.
const synProgram = "PR001"

// SetProgram selects the heating program. It tries the extended write
// endpoint first and falls back to the legacy endpoint when the extended
// attempt is unreachable or inconclusive.
func (c *Client) SetProgram(ctx context.Context, code int) error {
	if !c.HasWriteAccess() {
		c.log.Errorw("set_program_denied", "reason", "no write key configured")
		return ErrNoWriteAccess
	}

	value := strconv.Itoa(code)
	switch c.writeExtended(ctx, synProgram, value) {
	case ackSuccess:
		c.log.Infow("program_set", "code", code, "endpoint", extParsetPath)
		return nil
	case ackRejected:
		return fmt.Errorf("%w: program %d", ErrWriteRejected, code)
	}

	if c.writeLegacy(ctx, synProgram, value) {
		c.log.Infow("program_set", "code", code, "endpoint", parsetPath)
		return nil
	}
	return fmt.Errorf("%w: program %d", ErrWriteFailed, code)
}

// SetTemperature writes the day or night set-point of a heating circuit.
// The parameter code combines the 1-based circuit number with a suffix of
// "02" for day and "03" for night. There is no legacy fallback for
// temperature writes.
func (c *Client) SetTemperature(ctx context.Context, circuit int, period models.TempPeriod, value float64) error {
	if !c.HasWriteAccess() {
		c.log.Errorw("set_temperature_denied", "reason", "no write key configured")
		return ErrNoWriteAccess
	}

	suffix := "03"
	if period == models.PeriodDay {
		suffix = "02"
	}
	syn := fmt.Sprintf("HK%d%s", circuit+1, suffix)
	raw := strconv.FormatFloat(value, 'f', -1, 64)

	switch c.writeExtended(ctx, syn, raw) {
	case ackSuccess:
		c.log.Infow("temperature_set", "circuit", circuit, "period", period, "value", value)
		return nil
	case ackRejected:
		return fmt.Errorf("%w: %s temperature for circuit %d", ErrWriteRejected, period, circuit)
	}
	return fmt.Errorf("%w: %s temperature for circuit %d", ErrWriteFailed, period, circuit)
}

// writeParams builds the parameter-set query: parameter code, value and the
// write secret.
func (c *Client) writeParams(syn, value string) url.Values {
	return url.Values{
		"syn":   []string{syn},
		"value": []string{value},
		"key":   []string{c.writeKey},
	}
}

// writeExtended attempts the extended write endpoint. Transport errors are
// absorbed into an inconclusive outcome so the caller's fallback chain can
// continue.
func (c *Client) writeExtended(ctx context.Context, syn, value string) ackOutcome {
	status, body, err := c.get(ctx, extParsetPath, c.writeParams(syn, value), defaultTimeout)
	if err != nil {
		c.log.Debugw("ext_parset_unreachable", "syn", syn, "err", err)
		return ackInconclusive
	}
	if status != http.StatusOK {
		c.log.Debugw("ext_parset_bad_status", "syn", syn, "status", status)
		return ackInconclusive
	}
	outcome := classifyAck(body)
	if outcome == ackRejected {
		c.log.Errorw("ext_parset_rejected", "syn", syn, "body", string(body))
	}
	return outcome
}

// writeLegacy attempts the plain legacy write endpoint, where HTTP 200 is
// unconditional success.
func (c *Client) writeLegacy(ctx context.Context, syn, value string) bool {
	status, _, err := c.get(ctx, parsetPath, c.writeParams(syn, value), defaultTimeout)
	if err != nil {
		c.log.Errorw("parset_unreachable", "syn", syn, "err", err)
		return false
	}
	if status != http.StatusOK {
		c.log.Errorw("parset_bad_status", "syn", syn, "status", status)
		return false
	}
	return true
}

// classifyAck interprets the heterogeneous ack encodings of the extended
// endpoint: a JSON object with "ack" (success) or "err" (explicit reject),
// or a plain-text body containing "OK" or a case-insensitive "ack".
func classifyAck(body []byte) ackOutcome {
	var ack map[string]json.RawMessage
	if err := json.Unmarshal(body, &ack); err == nil {
		if _, ok := ack["ack"]; ok {
			return ackSuccess
		}
		if _, ok := ack["err"]; ok {
			return ackRejected
		}
		return ackInconclusive
	}

	text := string(body)
	if strings.Contains(text, "OK") || strings.Contains(strings.ToLower(text), "ack") {
		return ackSuccess
	}
	return ackInconclusive
}
