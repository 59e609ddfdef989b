package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrVerification covers every way an inbound payload can fail the trust
// check. Callers must not act on the payload, or explain the failure to
// the sender, when this is returned.
var ErrVerification = errors.New("webhook signature verification failed")

// DefaultTolerance bounds how stale a signed timestamp may be before the
// delivery is treated as a possible replay.
const DefaultTolerance = 5 * time.Minute

// Verifier checks that a raw payload carries a valid gateway signature.
// The signature header has the form "t=<unix>,v1=<hex mac>", where the mac
// is HMAC-SHA256 over "<t>.<raw payload>" keyed with the signing secret.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

// Verify checks header against the exact raw bytes of payload. The payload
// must not be parsed as JSON until this returns nil.
func (v *Verifier) Verify(payload []byte, header string) error {
	ts, macs, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	age := v.now().Sub(time.Unix(ts, 0))
	if age > v.tolerance || age < -v.tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrVerification)
	}

	expected := ComputeSignature(v.secret, ts, payload)
	for _, mac := range macs {
		if hmac.Equal([]byte(mac), []byte(expected)) {
			return nil
		}
	}
	return fmt.Errorf("%w: no matching signature", ErrVerification)
}

// ComputeSignature returns the hex mac the gateway would attach for the
// given timestamp and payload. Exported for tests and the mock gateway.
func ComputeSignature(secret []byte, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader renders a header value the Verifier accepts; the test
// and local-mode counterpart of ComputeSignature.
func SignatureHeader(secret string, ts time.Time, payload []byte) string {
	unix := ts.Unix()
	return fmt.Sprintf("t=%d,v1=%s", unix, ComputeSignature([]byte(secret), unix, payload))
}

func parseSignatureHeader(header string) (ts int64, macs []string, err error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrVerification)
	}
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(part, "=")
		if !found {
			return 0, nil, fmt.Errorf("%w: malformed signature header", ErrVerification)
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: malformed timestamp", ErrVerification)
			}
		case "v1":
			macs = append(macs, val)
		}
		// Other schemes (v0 etc) are ignored, same as unknown keys.
	}
	if ts == 0 || len(macs) == 0 {
		return 0, nil, fmt.Errorf("%w: malformed signature header", ErrVerification)
	}
	return ts, macs, nil
}
