package password

import "fmt"

// MaxPasswordBytes bounds the input accepted by Hash and Verify.
const MaxPasswordBytes = 1024

// Params controls Argon2id hashing cost. MemoryKiB is in KiB as required by argon2.IDKey.
// The env tags let callers embed Params in their own config with an envPrefix.
type Params struct {
	MemoryKiB   uint32 `env:"MEMORY_KIB" envDefault:"19456"`
	Iterations  uint32 `env:"ITERATIONS" envDefault:"2"`
	Parallelism uint8  `env:"PARALLELISM" envDefault:"1"`
	SaltLength  uint32 `env:"SALT_LEN" envDefault:"16"`
	KeyLength   uint32 `env:"KEY_LEN" envDefault:"32"`
}

// DefaultParams returns the OWASP minimum Argon2id profile (19 MiB, t=2, p=1).
func DefaultParams() Params {
	return Params{
		MemoryKiB:   19 * 1024,
		Iterations:  2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Validate checks that p is usable for hashing.
func (p Params) Validate() error {
	switch {
	case p.MemoryKiB < 8 || p.MemoryKiB > 4*1024*1024:
		return fmt.Errorf("%w: memory_kib %d out of range [8..4194304]", ErrInvalidParams, p.MemoryKiB)
	case p.Iterations < 1 || p.Iterations > 64:
		return fmt.Errorf("%w: iterations %d out of range [1..64]", ErrInvalidParams, p.Iterations)
	case p.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be >= 1", ErrInvalidParams)
	case p.SaltLength < 8 || p.SaltLength > 64:
		return fmt.Errorf("%w: salt_len %d out of range [8..64]", ErrInvalidParams, p.SaltLength)
	case p.KeyLength < 16 || p.KeyLength > 128:
		return fmt.Errorf("%w: key_len %d out of range [16..128]", ErrInvalidParams, p.KeyLength)
	}
	return nil
}
