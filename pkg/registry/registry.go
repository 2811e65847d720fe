package registry

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/shipyard/pkg/types"
)

const (
	encPrefix  = "enc:"
	pbkdf2Iter = 100000
	saltSize   = 16
	keySize    = 32
)

// Credentials is one registry's resolved, decrypted login material.
type Credentials struct {
	Username string
	Password string
	Email    string
}

type credentialsFile struct {
	Registries map[string]struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Email    string `yaml:"email"`
	} `yaml:"registries"`
}

// LoadCredentialsFile reads a registry credentials file and decrypts any
// password field encoded as ciphertext (prefixed "enc:"), returning a
// map keyed by registry host. Plaintext passwords pass through
// unchanged, letting an operator mix encrypted and plaintext entries in
// the same file.
func LoadCredentialsFile(path, passphrase string) (map[string]Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read credentials file: %w", err)
	}

	var doc credentialsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse credentials file: %w", err)
	}

	out := make(map[string]Credentials, len(doc.Registries))
	for host, c := range doc.Registries {
		password := c.Password
		if IsEncrypted(password) {
			if passphrase == "" {
				return nil, fmt.Errorf("registry: %s: password is encrypted but no passphrase was given", host)
			}
			plain, err := Decrypt(password, passphrase)
			if err != nil {
				return nil, fmt.Errorf("registry: %s: %w", host, err)
			}
			password = plain
		}
		out[host] = Credentials{Username: c.Username, Password: password, Email: c.Email}
	}
	return out, nil
}

// IsEncrypted reports whether password is ciphertext produced by Encrypt.
func IsEncrypted(password string) bool {
	return strings.HasPrefix(password, encPrefix)
}

// Encrypt derives a key from passphrase with PBKDF2 and seals plaintext
// with AES-256-GCM, returning a value suitable for a credentials file's
// password field.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("registry: generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("registry: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)

	return encPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt reverses Encrypt given the same passphrase.
func Decrypt(ciphertext, passphrase string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ciphertext, encPrefix))
	if err != nil {
		return "", fmt.Errorf("registry: decode ciphertext: %w", err)
	}
	if len(blob) < saltSize {
		return "", fmt.Errorf("registry: ciphertext too short")
	}
	salt, rest := blob[:saltSize], blob[saltSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(rest) < gcm.NonceSize() {
		return "", fmt.Errorf("registry: ciphertext too short")
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("registry: decrypt: wrong passphrase or corrupt data: %w", err)
	}
	return string(plain), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iter, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("registry: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("registry: create GCM: %w", err)
	}
	return gcm, nil
}

// Source adapts a loaded credentials map to pkg/docker.CredentialSource,
// falling back to the plaintext username/password already present on
// the environment document's Registry entry when no credentials-file
// entry matches its host.
type Source struct {
	Creds map[string]Credentials
}

// Resolve implements pkg/docker.CredentialSource.
func (s Source) Resolve(reg *types.Registry) (string, string, error) {
	if reg == nil {
		return "", "", nil
	}
	if c, ok := ResolveHost(s.Creds, reg.URL); ok {
		return c.Username, c.Password, nil
	}
	password := reg.Password
	if IsEncrypted(password) {
		return "", "", fmt.Errorf("registry: %s: password is encrypted but no credentials file entry overrides it", reg.URL)
	}
	return reg.Username, password, nil
}

// ResolveHost picks the credentials entry matching image's registry
// host, exact-match first, then by FQDN suffix, mirroring the same
// heuristic pkg/container uses to resolve a Registry from the
// environment document.
func ResolveHost(creds map[string]Credentials, host string) (Credentials, bool) {
	if c, ok := creds[host]; ok {
		return c, true
	}
	for h, c := range creds {
		if strings.HasSuffix(host, "."+h) {
			return c, true
		}
	}
	return Credentials{}, false
}
