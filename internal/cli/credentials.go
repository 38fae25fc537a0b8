package cli

import (
	stderrors "errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/zalando/go-keyring"

	"github.com/rileyhilliard/rmon/internal/errors"
	"github.com/rileyhilliard/rmon/internal/logger"
)

const keyringService = "rmon"

// ErrPasswordNotFound is returned by a PasswordStore with no entry.
var ErrPasswordNotFound = stderrors.New("password not found")

// PasswordStore persists SSH passwords keyed by user and host.
type PasswordStore interface {
	Get(user, host string) (string, error)
	Set(user, host, password string) error
	Delete(user, host string) error
}

// KeyringStore is a PasswordStore backed by the OS keychain.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = keyringService
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(user, host string) (string, error) {
	pw, err := keyring.Get(k.service, keyringAccount(user, host))
	if err == nil {
		return pw, nil
	}
	if stderrors.Is(err, keyring.ErrNotFound) {
		return "", ErrPasswordNotFound
	}
	return "", err
}

func (k *KeyringStore) Set(user, host, password string) error {
	return keyring.Set(k.service, keyringAccount(user, host), password)
}

func (k *KeyringStore) Delete(user, host string) error {
	err := keyring.Delete(k.service, keyringAccount(user, host))
	if stderrors.Is(err, keyring.ErrNotFound) {
		return ErrPasswordNotFound
	}
	return err
}

func keyringAccount(user, host string) string {
	return user + "@" + host
}

// credentials answers the SSH client's user and password callbacks for one
// connection attempt.
type credentials struct {
	// store is nil unless --keyring is on.
	store       PasswordStore
	interactive bool

	promptUser     func(host string) (string, error)
	promptPassword func(user, host string) (string, error)

	// beforePrompt runs before anything is drawn, e.g. to stop a spinner.
	beforePrompt func()

	log logger.Logger

	prompted    *savedPassword
	fromKeyring *savedPassword
}

type savedPassword struct {
	user, host, password string
}

// User asks for a login name when neither flags nor ssh_config gave one.
func (c *credentials) User(host string) (string, error) {
	c.notifyPrompt()
	u, err := c.promptUser(host)
	if err != nil {
		return "", promptError(err)
	}
	return strings.TrimSpace(u), nil
}

// Password is consulted after agent auth was unavailable or rejected. A stored
// keyring entry is tried before the user is asked.
func (c *credentials) Password(user, host string) (string, error) {
	if c.store != nil {
		pw, err := c.store.Get(user, host)
		switch {
		case err == nil:
			c.log.Debug("using keyring password for %s@%s", user, host)
			c.fromKeyring = &savedPassword{user: user, host: host, password: pw}
			return pw, nil
		case !stderrors.Is(err, ErrPasswordNotFound):
			c.log.Warn("keyring lookup for %s@%s failed: %v", user, host, err)
		}
	}

	if !c.interactive {
		return "", errors.New(errors.ErrAuth,
			fmt.Sprintf("No password available for %s@%s", user, host),
			"Load a key with ssh-add, or run rmon from a terminal to be prompted")
	}

	c.notifyPrompt()
	pw, err := c.promptPassword(user, host)
	if err != nil {
		return "", promptError(err)
	}
	c.prompted = &savedPassword{user: user, host: host, password: pw}
	return pw, nil
}

// Remember saves a prompted password once the server has accepted it.
func (c *credentials) Remember(usedPassword bool) {
	if c.store == nil || c.prompted == nil || !usedPassword {
		return
	}
	p := c.prompted
	if err := c.store.Set(p.user, p.host, p.password); err != nil {
		c.log.Warn("couldn't save password to keyring: %v", err)
		return
	}
	c.log.Info("saved password for %s@%s to the keyring", p.user, p.host)
}

// Forget drops a keyring password the server rejected so the next run prompts.
func (c *credentials) Forget() {
	if c.store == nil || c.fromKeyring == nil {
		return
	}
	p := c.fromKeyring
	if err := c.store.Delete(p.user, p.host); err != nil && !stderrors.Is(err, ErrPasswordNotFound) {
		c.log.Warn("couldn't remove stale keyring password: %v", err)
		return
	}
	c.log.Info("removed rejected keyring password for %s@%s", p.user, p.host)
}

func (c *credentials) notifyPrompt() {
	if c.beforePrompt != nil {
		c.beforePrompt()
	}
}

func promptError(err error) error {
	if stderrors.Is(err, huh.ErrUserAborted) {
		return errors.New(errors.ErrAuth, "Login cancelled", "")
	}
	return errors.WrapWithCode(err, errors.ErrTerminal,
		"Couldn't read credentials from the terminal",
		"Load a key with ssh-add, or pass -u <user>")
}

func huhUserPrompt(host string) (string, error) {
	var name string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Username for "+host).
				Placeholder(localUser()).
				Value(&name),
		),
	).WithOutput(os.Stderr)

	if err := form.Run(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return localUser(), nil
	}
	return name, nil
}

func huhPasswordPrompt(user, host string) (string, error) {
	var pw string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Password for %s@%s", user, host)).
				EchoMode(huh.EchoModePassword).
				Value(&pw),
		),
	).WithOutput(os.Stderr)

	if err := form.Run(); err != nil {
		return "", err
	}
	return pw, nil
}

func localUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}
