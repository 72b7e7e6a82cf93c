package types

// ClientInformation is one directory entry as served by GET /api/client
type ClientInformation struct {
	Entity           Entity           `json:"entity"`
	AdapterAddresses []AdapterAddress `json:"adapter_addresses"`
}

// Entity is the stored identity record of a client device.
// Timestamps are formatted by the server and treated as opaque by consumers.
type Entity struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	CreateTime    string `json:"create_time"`
	LastFetchTime string `json:"last_fetch_time"`
}

// AdapterAddress represents the addresses reported for one network interface
type AdapterAddress struct {
	Name string `json:"name" validate:"required"`
	V4   string `json:"v4,omitempty" validate:"omitempty,ipv4"`
	V6   string `json:"v6,omitempty" validate:"omitempty,ipv6"`
}

// RenameRequest is the body of PUT /api/client/:id
type RenameRequest struct {
	NewName string `json:"new_name" validate:"required,max=255"`
}
