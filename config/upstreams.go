// ABOUTME: Webhook URL resolution for each upstream action family
// ABOUTME: Families fall back to shared URLs when their specific variable is unset

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Environment keys for workflow backend webhooks.
const (
	KeyWebhook          = "N8N_WEBHOOK_URL"
	KeyAuthLogin        = "N8N_AUTH_REGISTER_LOGIN_URL"
	KeyAuthLogout       = "N8N_AUTH_LOGOUT_URL"
	KeyAuthMe           = "N8N_AUTH_ME_WEBHOOK_URL"
	KeyQuestAccept      = "N8N_QUEST_ACCEPT_URL"
	KeyQuest            = "N8N_QUEST_URL"
	KeyMicrostepToggle  = "N8N_MICROSTEP_TOGGLE_URL"
	KeyGuildmasterIntro = "N8N_GUILDMASTER_INTRO_URL"
	KeyBoss             = "N8N_BOSS_URL"
)

// UpstreamFamily groups the routes that share a webhook URL.
type UpstreamFamily string

const (
	FamilyLogin            UpstreamFamily = "login"
	FamilyRegister         UpstreamFamily = "register"
	FamilyLogout           UpstreamFamily = "logout"
	FamilyMe               UpstreamFamily = "me"
	FamilyQuestAccept      UpstreamFamily = "quest_accept"
	FamilyQuests           UpstreamFamily = "quests"
	FamilyMicrostepToggle  UpstreamFamily = "microstep_toggle"
	FamilyBoss             UpstreamFamily = "boss"
	FamilyOrchestrator     UpstreamFamily = "orchestrator"
	FamilyGuildmasterIntro UpstreamFamily = "guildmaster_intro"
)

// familyKeys lists, per family, the environment keys tried in order. The first
// key is the one named in remediation hints.
var familyKeys = map[UpstreamFamily][]string{
	FamilyLogin:            {KeyAuthLogin},
	FamilyRegister:         {KeyWebhook},
	FamilyLogout:           {KeyAuthLogout, KeyWebhook},
	FamilyMe:               {KeyAuthMe, KeyAuthLogin},
	FamilyQuestAccept:      {KeyQuestAccept},
	FamilyQuests:           {KeyQuest, KeyWebhook},
	FamilyMicrostepToggle:  {KeyMicrostepToggle},
	FamilyBoss:             {KeyBoss, KeyWebhook},
	FamilyOrchestrator:     {KeyWebhook},
	FamilyGuildmasterIntro: {KeyGuildmasterIntro},
}

// Families returns every upstream family in a stable order.
func Families() []UpstreamFamily {
	return []UpstreamFamily{
		FamilyLogin, FamilyRegister, FamilyLogout, FamilyMe,
		FamilyQuestAccept, FamilyQuests, FamilyMicrostepToggle,
		FamilyBoss, FamilyOrchestrator, FamilyGuildmasterIntro,
	}
}

// Keys returns the environment keys consulted for family, in fallback order.
func (f UpstreamFamily) Keys() []string {
	return familyKeys[f]
}

// MissingURLError reports that no key in a family's chain is set.
type MissingURLError struct {
	Family UpstreamFamily
	Key    string // the family's primary key
}

func (e *MissingURLError) Error() string {
	return fmt.Sprintf("%s is not set (needed for %s)", e.Key, e.Family)
}

// Upstreams holds raw webhook URLs keyed by environment variable name.
type Upstreams struct {
	urls map[string]string
}

// NewUpstreams builds Upstreams from explicit key/URL pairs (useful for testing).
func NewUpstreams(urls map[string]string) *Upstreams {
	u := &Upstreams{urls: make(map[string]string, len(urls))}
	for k, v := range urls {
		if v = strings.TrimSpace(v); v != "" {
			u.urls[k] = v
		}
	}
	return u
}

func upstreamsFromEnv() *Upstreams {
	urls := make(map[string]string)
	for _, family := range Families() {
		for _, key := range family.Keys() {
			urls[key] = os.Getenv(key)
		}
	}
	return NewUpstreams(urls)
}

// Resolve returns the webhook URL for family, following its fallback chain.
func (u *Upstreams) Resolve(family UpstreamFamily) (string, error) {
	keys := family.Keys()
	if len(keys) == 0 {
		return "", fmt.Errorf("unknown upstream family %q", family)
	}
	if u != nil {
		for _, key := range keys {
			if v, ok := u.urls[key]; ok {
				return v, nil
			}
		}
	}
	return "", &MissingURLError{Family: family, Key: keys[0]}
}

// Status reports "configured" or "not_configured" per family.
func (u *Upstreams) Status() map[string]string {
	status := make(map[string]string, len(familyKeys))
	for _, family := range Families() {
		if _, err := u.Resolve(family); err != nil {
			status[string(family)] = "not_configured"
		} else {
			status[string(family)] = "configured"
		}
	}
	return status
}

// Missing returns the families that have no URL configured.
func (u *Upstreams) Missing() []*MissingURLError {
	var missing []*MissingURLError
	for _, family := range Families() {
		if _, err := u.Resolve(family); err != nil {
			var m *MissingURLError
			if errors.As(err, &m) {
				missing = append(missing, m)
			}
		}
	}
	return missing
}
