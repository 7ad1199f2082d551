package entities

import "time"

// Methods answered by the proxy itself. Everything else is forwarded.
const (
	MethodOwner             = "owner"
	MethodGetOwner          = "getOwner"
	MethodGetImplementation = "getImplementation"
	MethodSetImplementation = "setImplementation"
	MethodTransferOwnership = "transferOwnership"
	MethodLayoutVersion     = "layoutVersion"
)

// IsProxyMethod reports whether method is handled without forwarding.
func IsProxyMethod(method string) bool {
	switch method {
	case MethodOwner, MethodGetOwner, MethodGetImplementation,
		MethodSetImplementation, MethodTransferOwnership, MethodLayoutVersion:
		return true
	}
	return false
}

const (
	EventTypeDeployed               = "proxy.deployed"
	EventTypeImplementationUpgraded = "proxy.implementation_upgraded"
	EventTypeOwnershipTransferred   = "proxy.ownership_transferred"
)

type Deployed struct {
	Owner          string    `json:"owner"`
	Implementation string    `json:"implementation"`
	LayoutVersion  int       `json:"layout_version"`
	DeployedAt     time.Time `json:"deployed_at"`
}

type ImplementationUpgraded struct {
	Previous      string `json:"previous"`
	Next          string `json:"next"`
	LayoutVersion int    `json:"layout_version"`
}

type OwnershipTransferred struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
}

// Argument and return documents of the proxy-level methods.

type OwnerDocument struct {
	Owner string `json:"owner"`
}

type ImplementationDocument struct {
	Implementation string `json:"implementation"`
}

type LayoutVersionDocument struct {
	LayoutVersion int `json:"layout_version"`
}

type SetImplementationArgs struct {
	Address string `json:"address"`
}

type TransferOwnershipArgs struct {
	NewOwner string `json:"new_owner"`
}
