// Package resource builds and parses the urn:relay-resource identifiers that
// address devices, groups, and interactions in workflow requests.
//
// The format is a fixed colon-joined tuple:
//
//	urn:relay-resource:<id-type>:<resource-type>:<id-or-name>
//
// Interaction URIs additionally embed the device they ride on, extending the
// tuple with a second name/id segment.
package resource

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	scheme = "urn"
	root   = "relay-resource"

	typeGroup       = "group"
	typeDevice      = "device"
	typeInteraction = "interaction"

	idTypeID   = "id"
	idTypeName = "name"

	interactionPrefixName = "urn:relay-resource:name:interaction"
	interactionPrefixID   = "urn:relay-resource:id:interaction"

	plainParts    = 5
	embeddedParts = 9
)

// Target is the set of resource URIs a request addresses.
type Target struct {
	URIs []string `json:"uris"`
}

// Targets builds a Target from explicit URIs.
func Targets(uris ...string) Target {
	return Target{URIs: uris}
}

// TargetsFromTrigger extracts the originating device from a start event's
// trigger, the usual way a workflow learns what to address.
func TargetsFromTrigger(trigger map[string]any) (Target, error) {
	args, ok := trigger["args"].(map[string]any)
	if !ok {
		return Target{}, fmt.Errorf("resource: trigger has no args mapping")
	}
	source, ok := args["source_uri"].(string)
	if !ok || source == "" {
		return Target{}, fmt.Errorf("resource: trigger has no source_uri")
	}
	return Targets(source), nil
}

func construct(resourceType, idType, idOrName string) string {
	return strings.Join([]string{scheme, root, idType, resourceType, idOrName}, ":")
}

// GroupID returns the URI of a group identified by id.
func GroupID(id string) string {
	return construct(typeGroup, idTypeID, id)
}

// GroupName returns the URI of a group identified by name.
func GroupName(name string) string {
	return construct(typeGroup, idTypeName, name)
}

// DeviceID returns the URI of a device identified by id.
func DeviceID(id string) string {
	return construct(typeDevice, idTypeID, id)
}

// DeviceName returns the URI of a device identified by name.
func DeviceName(name string) string {
	return construct(typeDevice, idTypeName, name)
}

// GroupMember returns the URI of a device within a group.
func GroupMember(group, device string) string {
	return construct(typeGroup, idTypeName, group) +
		"?device=" + url.QueryEscape(construct(typeDevice, idTypeName, device))
}

// IsRelayURI reports whether uri is any relay resource identifier.
func IsRelayURI(uri string) bool {
	return strings.HasPrefix(uri, scheme+":"+root)
}

// IsInteractionURI reports whether uri addresses an interaction rather than a
// bare device or group.
func IsInteractionURI(uri string) bool {
	return strings.Contains(uri, interactionPrefixName) || strings.Contains(uri, interactionPrefixID)
}

// ParseGroupName extracts the group name from a group URI.
func ParseGroupName(uri string) (string, error) {
	idType, resourceType, name, err := parsePlain(uri)
	if err != nil {
		return "", err
	}
	if idType != idTypeName || resourceType != typeGroup {
		return "", fmt.Errorf("resource: %q is not a group name URI", uri)
	}
	return name, nil
}

// ParseGroupID extracts the group id from a group URI.
func ParseGroupID(uri string) (string, error) {
	idType, resourceType, id, err := parsePlain(uri)
	if err != nil {
		return "", err
	}
	if idType != idTypeID || resourceType != typeGroup {
		return "", fmt.Errorf("resource: %q is not a group id URI", uri)
	}
	return id, nil
}

// ParseDeviceName extracts the device name from a device URI, including the
// embedded form used by interaction URIs.
func ParseDeviceName(uri string) (string, error) {
	return parseDevice(uri, idTypeName)
}

// ParseDeviceID extracts the device id from a device URI, including the
// embedded form used by interaction URIs.
func ParseDeviceID(uri string) (string, error) {
	return parseDevice(uri, idTypeID)
}

// ParseInteraction extracts the interaction name from an interaction URI.
func ParseInteraction(uri string) (string, error) {
	parts, err := split(uri)
	if err != nil {
		return "", err
	}
	if len(parts) != embeddedParts || parts[3] != typeInteraction {
		return "", fmt.Errorf("resource: %q is not an interaction URI", uri)
	}
	name := parts[4]
	// Strip a ?device= suffix when the interaction carries one.
	if i := strings.Index(name, "?device="); i >= 0 {
		name = name[:i]
	}
	return name, nil
}

func parsePlain(uri string) (idType, resourceType, value string, err error) {
	parts, err := split(uri)
	if err != nil {
		return "", "", "", err
	}
	if len(parts) != plainParts {
		return "", "", "", fmt.Errorf("resource: malformed URI %q", uri)
	}
	return parts[2], parts[3], parts[4], nil
}

func parseDevice(uri, wantIDType string) (string, error) {
	parts, err := split(uri)
	if err != nil {
		return "", err
	}
	switch len(parts) {
	case plainParts:
		if parts[2] != wantIDType {
			return "", fmt.Errorf("resource: %q does not identify a device by %s", uri, wantIDType)
		}
		return parts[4], nil
	case embeddedParts:
		// Interaction URI: the device segment is the trailing tuple.
		if parts[2] != wantIDType || parts[6] != wantIDType {
			return "", fmt.Errorf("resource: %q does not identify a device by %s", uri, wantIDType)
		}
		return parts[8], nil
	default:
		return "", fmt.Errorf("resource: malformed URI %q", uri)
	}
}

func split(uri string) ([]string, error) {
	unescaped, err := url.QueryUnescape(uri)
	if err != nil {
		return nil, fmt.Errorf("resource: unescaping %q: %w", uri, err)
	}
	parts := strings.Split(unescaped, ":")
	if len(parts) < plainParts || parts[0] != scheme || parts[1] != root {
		return nil, fmt.Errorf("resource: %q is not a relay URI", uri)
	}
	return parts, nil
}
