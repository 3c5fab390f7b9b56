package vsdiary

import "fmt"

// IntegrityError reports a MAC mismatch on decode. It is raised before any
// decryption is attempted: a ciphertext that fails authentication never
// reaches the cipher, so crafted envelopes cannot probe padding or cipher
// internals. The mismatching tag values are deliberately not included in the
// message.
type IntegrityError struct{}

func (IntegrityError) Error() string {
	return "envelope compromised: mac verification failed"
}

// FormatError reports a structurally malformed envelope, such as a part
// count other than three or an empty segment.
type FormatError struct {
	Reason string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("malformed envelope: %s", e.Reason)
}
