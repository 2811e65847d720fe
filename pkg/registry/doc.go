/*
Package registry resolves the credentials shipyard presents to a Docker
daemon when pulling an image from a private registry.

LoadCredentialsFile reads a separate credentials file whose passwords are
either plaintext or "enc:"-prefixed AES-256-GCM ciphertext; it derives a
key from an operator-supplied passphrase with PBKDF2 and decrypts the
prefixed ones, leaving plain values untouched. Registry.Password in the
environment document is not decrypted: Source.Resolve uses it as is, and
returns an error when it is "enc:"-prefixed and no credentials-file entry
covers that registry's host.
*/
package registry
