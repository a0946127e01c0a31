package weconnect

import (
	"strconv"
	"time"
)

// Local addresses of the attributes exposed by the client.
const (
	AddressClimatisationState         = "climatisationState"
	AddressRemainingClimatisationTime = "remainingClimatisationTime_min"
	AddressCarCapturedTimestamp       = "carCapturedTimestamp"
)

// Token is a vehicle service login result.
type Token struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Vehicle is a vehicle assigned to the account.
type Vehicle struct {
	VIN      string `json:"vin"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

type vehiclesResponse struct {
	Data []Vehicle `json:"data"`
}

// VehicleStatus is the selective status of a vehicle. Only the climatisation job is modelled.
type VehicleStatus struct {
	Climatisation *ClimatisationJob `json:"climatisation,omitempty"`
}

// ClimatisationJob groups the climatisation domain of the vehicle status.
type ClimatisationJob struct {
	ClimatisationStatus *ClimatisationStatusField `json:"climatisationStatus,omitempty"`
}

// ClimatisationStatusField wraps the reported climatisation status.
type ClimatisationStatusField struct {
	Value ClimatisationStatus `json:"value"`
}

// ClimatisationStatus is the climatisation status reported by the vehicle.
type ClimatisationStatus struct {
	CarCapturedTimestamp          time.Time `json:"carCapturedTimestamp"`
	RemainingClimatisationTimeMin *int      `json:"remainingClimatisationTime_min,omitempty"`
	ClimatisationState            string    `json:"climatisationState"`
}

// attributes flattens the status into values keyed by local address. Missing fields are left out.
func (s *VehicleStatus) attributes() map[string]string {
	attrs := make(map[string]string)

	if s == nil || s.Climatisation == nil || s.Climatisation.ClimatisationStatus == nil {
		return attrs
	}

	v := s.Climatisation.ClimatisationStatus.Value

	if v.ClimatisationState != "" {
		attrs[AddressClimatisationState] = v.ClimatisationState
	}

	if v.RemainingClimatisationTimeMin != nil {
		attrs[AddressRemainingClimatisationTime] = strconv.Itoa(*v.RemainingClimatisationTimeMin)
	}

	if !v.CarCapturedTimestamp.IsZero() {
		attrs[AddressCarCapturedTimestamp] = v.CarCapturedTimestamp.UTC().Format(time.RFC3339)
	}

	return attrs
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
