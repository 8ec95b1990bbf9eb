// Package attest signs rendered reports with detached, ASCII-armored OpenPGP
// signatures and verifies them against a public keyring.
package attest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// PassphraseEnv names the environment variable holding the signing key passphrase.
const PassphraseEnv = "PROTOAUDIT_SIGN_PASSPHRASE"

// ErrPassphraseRequired is returned when the signing key is encrypted and no
// passphrase was supplied.
var ErrPassphraseRequired = errors.New("signing key is passphrase-protected: set " + PassphraseEnv)

// LoadSigner reads an armored private key file and returns the first entity
// holding private key material, decrypted with passphrase when needed.
func LoadSigner(path, passphrase string) (*openpgp.Entity, error) {
	entities, err := readKeyring(path)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		if e.PrivateKey == nil {
			continue
		}
		if err := decrypt(e, passphrase); err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, fmt.Errorf("no private key found in %s", path)
}

func decrypt(e *openpgp.Entity, passphrase string) error {
	keys := []*openpgp.Subkey{{PrivateKey: e.PrivateKey}}
	for i := range e.Subkeys {
		keys = append(keys, &e.Subkeys[i])
	}
	for _, k := range keys {
		if k.PrivateKey == nil || !k.PrivateKey.Encrypted {
			continue
		}
		if passphrase == "" {
			return ErrPassphraseRequired
		}
		if err := k.PrivateKey.Decrypt([]byte(passphrase)); err != nil {
			return fmt.Errorf("decrypting signing key: %w", err)
		}
	}
	return nil
}

// Sign writes an armored detached signature over data to w.
func Sign(w io.Writer, signer *openpgp.Entity, data []byte) error {
	if err := openpgp.ArmoredDetachSign(w, signer, bytes.NewReader(data), nil); err != nil {
		return fmt.Errorf("signing report: %w", err)
	}
	return nil
}

// LoadKeyring reads an armored public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	entities, err := readKeyring(path)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// Verify checks an armored detached signature over data and returns the
// primary identity name of the signer.
func Verify(keyring openpgp.EntityList, data, signature []byte) (string, error) {
	if len(keyring) == 0 {
		return "", fmt.Errorf("keyring is empty")
	}
	signer, err := openpgp.CheckArmoredDetachedSignature(keyring, bytes.NewReader(data), bytes.NewReader(signature), nil)
	if err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}
	if id := signer.PrimaryIdentity(); id != nil {
		return id.Name, nil
	}
	return fmt.Sprintf("%X", signer.PrimaryKey.Fingerprint), nil
}

func readKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", path, err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("no keys found in %s", path)
	}
	return entities, nil
}
