package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"solace/pkg/config"
)

// passwordEnv lets the service start without an interactive prompt.
const passwordEnv = "SOLACE_PASSWORD"

var errNoTerminal = errors.New("stdin is not a terminal; set " + passwordEnv)

// unlockSecrets decrypts the secrets file under dir, if there is one, into memory.
func unlockSecrets(dir string) error {
	if !config.SecretsFileExists(dir) {
		return nil
	}
	password := os.Getenv(passwordEnv)
	if password == "" {
		p, err := readPassword("🔐 Secrets password: ")
		if err != nil {
			return err
		}
		password = p
	}

	secrets, err := config.DecryptSecretsFile(dir, password)
	if err != nil {
		return err
	}
	config.SetDecryptedSecrets(secrets)
	return nil
}

// writeSecrets encrypts KEY=value lines read from r.
func writeSecrets(dir string, r io.Reader) error {
	secrets, err := godotenv.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse secrets: %w", err)
	}
	if len(secrets) == 0 {
		return errors.New("no secrets provided")
	}

	password := os.Getenv(passwordEnv)
	if password == "" {
		first, err := readPassword("Enter a password for the secrets file: ")
		if err != nil {
			return err
		}
		second, err := readPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if first != second {
			return errors.New("passwords do not match")
		}
		password = first
	}

	if err := config.EncryptSecretsFile(dir, password, secrets); err != nil {
		return err
	}
	fmt.Printf("✅ %d secrets saved under %s\n", len(secrets), config.SecretsDir)
	return nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errNoTerminal
	}
	fmt.Print(prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	return string(raw), nil
}
