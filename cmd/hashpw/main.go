// Command hashpw prompts for the owner's password and prints the bcrypt hash
// to put in PORTFOLIO_OWNER_PASSWORD_HASH.
package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errMismatch = errors.New("passwords do not match")

func prompt(w io.Writer, label string) ([]byte, error) {
	if _, err := fmt.Fprint(w, label); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	return pw, err
}

// run reads the password twice and writes its hash to out. Prompts go to w.
func run(w, out io.Writer) error {
	pw, err := prompt(w, "Enter password: ")
	if err != nil {
		return err
	}
	if len(pw) == 0 {
		return errors.New("password is empty")
	}
	again, err := prompt(w, "Repeat password: ")
	if err != nil {
		return err
	}
	if !bytes.Equal(pw, again) {
		return errMismatch
	}

	hash, err := bcrypt.GenerateFromPassword(pw, bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(hash))
	return err
}

func main() {
	if err := run(os.Stderr, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
