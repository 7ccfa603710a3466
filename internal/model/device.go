package model

// RegisterDeviceRequest asks for a device token. An existing device ID renews
// the token for the same device; an empty body registers a new device.
type RegisterDeviceRequest struct {
	DeviceID string `json:"device_id" binding:"omitempty,uuid"`
}
