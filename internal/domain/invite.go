package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	inviteScheme   = "wordcondenser"
	inviteLinkBase = "https://wordcondenser.com/invite?"
)

// Only the first occurrence of each character is substituted. Links already in
// circulation depend on it, so keep it that way.
func encodeInvitePart(s string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(s))
	encoded = strings.Replace(encoded, "+", "%", 1)
	return strings.Replace(encoded, "/", "-", 1)
}

func decodeInvitePart(s string) (string, error) {
	restored := strings.Replace(s, "%", "+", 1)
	restored = strings.Replace(restored, "-", "/", 1)
	decoded, err := base64.StdEncoding.DecodeString(restored)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func GroupPropsToInviteString(name string, networkSeed string) string {
	return encodeInvitePart(name) + "#" + encodeInvitePart(networkSeed)
}

func InviteStringToGroupProps(input string) (name string, networkSeed string, err error) {
	parts := strings.Split(input, "#")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: invalid invite string %q", ErrInvalidInvite, input)
	}
	name, err = decodeInvitePart(parts[0])
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid invite string %q: %v", ErrInvalidInvite, input, err)
	}
	networkSeed, err = decodeInvitePart(parts[1])
	if err != nil {
		return "", "", fmt.Errorf("%w: invalid invite string %q: %v", ErrInvalidInvite, input, err)
	}
	return name, networkSeed, nil
}

func GroupPropsToInviteLink(name string, networkSeed string) string {
	return inviteLinkBase + inviteScheme + "://" + GroupPropsToInviteString(name, networkSeed)
}

func InviteLinkToGroupProps(link string) (name string, networkSeed string, err error) {
	parts := strings.Split(strings.TrimSpace(link), "?")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: invalid invite link %q", ErrInvalidInvite, link)
	}
	scheme, rest, ok := strings.Cut(parts[1], "://")
	if !ok || scheme != inviteScheme {
		return "", "", fmt.Errorf("%w: invalid invite link %q", ErrInvalidInvite, link)
	}
	return InviteStringToGroupProps(rest)
}
