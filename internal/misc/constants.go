package misc

const (
	// KDFIterations is the reference PBKDF2 work factor for password-based
	// key derivation.
	KDFIterations = 64000

	// SaltSize is the derivation salt length for new deployments.
	SaltSize = 16

	// LegacySaltSize is the salt length written by the legacy journal
	// scheme. Kept only so previously created salt files remain readable;
	// new salts always use SaltSize.
	LegacySaltSize = 10
)
