package easee

// Credentials stands for Easee API credentials.
type Credentials struct {
	AccessToken  string   `json:"accessToken"`
	ExpiresIn    int      `json:"expiresIn"`
	AccessClaims []string `json:"accessClaims"`
	TokenType    string   `json:"tokenType"`
	RefreshToken string   `json:"refreshToken"`
}

// Site represents a site of the account. Circuits are only present in the detailed view.
type Site struct {
	ID       int       `json:"id"`
	SiteKey  string    `json:"siteKey"`
	Name     string    `json:"name"`
	Circuits []Circuit `json:"circuits"`
}

// Circuit represents an electrical circuit of a site.
type Circuit struct {
	ID             int       `json:"id"`
	SiteID         int       `json:"siteId"`
	CircuitPanelID int       `json:"circuitPanelId"`
	PanelName      string    `json:"panelName"`
	RatedCurrent   float64   `json:"ratedCurrent"`
	Chargers       []Charger `json:"chargers"`
}

// Charger represents charger data.
type Charger struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LevelOfAccess int    `json:"levelOfAccess"`
	ProductCode   int    `json:"productCode"`
}

// ChargerState is a subset of the charger state the application reads.
type ChargerState struct {
	SmartCharging         bool    `json:"smartCharging"`
	ChargerOpMode         OpMode  `json:"chargerOpMode"`
	IsOnline              bool    `json:"isOnline"`
	CableLocked           bool    `json:"cableLocked"`
	TotalPower            float64 `json:"totalPower"`
	SessionEnergy         float64 `json:"sessionEnergy"`
	DynamicChargerCurrent float64 `json:"dynamicChargerCurrent"`
	ReasonForNoCurrent    int     `json:"reasonForNoCurrent"`
}

// OpMode is the operational mode of the charger.
type OpMode int

const (
	OpModeOffline OpMode = iota
	OpModeDisconnected
	OpModeAwaitingStart
	OpModeCharging
	OpModeCompleted
	OpModeError
	OpModeReadyToCharge
	OpModeAwaitingAuthorization
	OpModeDeAuthorizing
)

// String implements the fmt.Stringer interface.
func (m OpMode) String() string {
	switch m {
	case OpModeOffline:
		return "OFFLINE"
	case OpModeDisconnected:
		return "DISCONNECTED"
	case OpModeAwaitingStart:
		return "AWAITING_START"
	case OpModeCharging:
		return "CHARGING"
	case OpModeCompleted:
		return "COMPLETED"
	case OpModeError:
		return "ERROR"
	case OpModeReadyToCharge:
		return "READY_TO_CHARGE"
	case OpModeAwaitingAuthorization:
		return "AWAITING_AUTHORIZATION"
	case OpModeDeAuthorizing:
		return "DE_AUTHORIZING"
	default:
		return "UNKNOWN"
	}
}

type loginBody struct {
	Username string `json:"userName"`
	Password string `json:"password"`
}

type refreshBody struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type smartChargingBody struct {
	SmartCharging bool `json:"smartCharging"`
}
