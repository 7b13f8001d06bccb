package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/fwojciec/stagehand"
)

// keyringService namespaces the credentials this program stores.
const keyringService = "stagehand"

// FetchRemote updates the remote-tracking refs of one remote. When the
// remote needs authentication the credential is looked up in the secret
// store first; the user is prompted only when nothing is stored, and a
// prompted credential is stored back after a successful fetch.
type FetchRemote struct {
	Repo     stagehand.Repository
	Secrets  stagehand.SecretStore
	Remote   stagehand.Remote
	WithAuth bool

	cred     *stagehand.Credential
	prompted bool
}

var _ stagehand.Task = (*FetchRemote)(nil)

func (t *FetchRemote) Name() string { return "fetch " + t.Remote.Name }

func (t *FetchRemote) Steps() []stagehand.Step {
	if !t.WithAuth {
		return nil
	}
	return []stagehand.Step{
		stagehand.Do(t.lookup),
		stagehand.Input{
			When:     func() bool { return t.cred == nil },
			Title:    "Fetch " + t.Remote.Name,
			Prompt:   "Username",
			Validate: requireText("username"),
			Accept: func(s string) {
				t.prompted = true
				t.cred = &stagehand.Credential{Username: s}
			},
		},
		stagehand.Secret{
			When:   func() bool { return t.prompted },
			Title:  "Fetch " + t.Remote.Name,
			Prompt: "Password",
			Accept: func(s string) { t.cred.Password = s },
		},
	}
}

// lookup loads a stored credential. Absence is not an error; it just
// routes the flow through the prompts.
func (t *FetchRemote) lookup(context.Context) error {
	stored, err := t.Secrets.Get(keyringService, t.Remote.URL)
	if errors.Is(err, stagehand.ErrSecretNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user, pass, ok := strings.Cut(stored, ":")
	if !ok {
		return nil
	}
	t.cred = &stagehand.Credential{Username: user, Password: pass}
	return nil
}

func (t *FetchRemote) Execute(ctx context.Context) error {
	if err := t.Repo.Fetch(ctx, t.Remote.Name, t.cred); err != nil {
		return err
	}
	if t.prompted && t.cred != nil {
		// A failed store is not a fetch failure; the user is prompted
		// again next time.
		_ = t.Secrets.Set(keyringService, t.Remote.URL, t.cred.Username+":"+t.cred.Password)
	}
	return nil
}

func (t *FetchRemote) Effects() stagehand.Effects { return stagehand.AffectsRemotes }
