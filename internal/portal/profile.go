// Package portal drives the tenant portal in a headless browser. The site's
// markup is treated as an opaque contract: every URL and selector the flow
// touches lives in a Profile so a portal-side rename is a config edit, not a
// code change.
package portal

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors are the DOM-addressable controls the reservation flow touches.
// StartPicker and EndPicker are base control IDs; the picker's three state
// slots are derived from them by suffix (_dateInput, _dateInput_ClientState,
// _ClientState).
type Selectors struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	LoginButton string `yaml:"login_button"`
	StartPicker string `yaml:"start_picker"`
	EndPicker   string `yaml:"end_picker"`
	Waiver      string `yaml:"waiver"`
	Save        string `yaml:"save"`
}

// Profile describes one portal deployment.
type Profile struct {
	LoginURL        string    `yaml:"login_url"`
	ReservationBase string    `yaml:"reservation_base"`
	AmenityID       int       `yaml:"amenity_id"`
	Selectors       Selectors `yaml:"selectors"`
}

// Default returns the Harbour View Estates BuildingLink profile.
func Default() *Profile {
	return &Profile{
		LoginURL:        "https://harbourviewestates.buildinglink.com/V2/Tenant/Home/DefaultNew.aspx",
		ReservationBase: "https://harbourviewestates.buildinglink.com/v2/tenant/Amenities/NewReservation.aspx",
		AmenityID:       61232,
		Selectors: Selectors{
			Username:    "#UserName",
			Password:    "#Password",
			LoginButton: "#LoginButton",
			StartPicker: "ctl00_ContentPlaceHolder1_StartTimePicker",
			EndPicker:   "ctl00_ContentPlaceHolder1_EndTimePicker",
			Waiver:      "#ctl00_ContentPlaceHolder1_containerLiabilityWaiverAgreeCheckbox .checkbox-label-wrap",
			Save:        "#ctl00_ContentPlaceHolder1_FooterSaveButton",
		},
	}
}

// LoadProfile reads a YAML profile, falling back to Default when path is
// empty or the file does not exist. Fields absent from the file keep their
// default values.
func LoadProfile(path string) (*Profile, error) {
	prof := Default()
	if path == "" {
		return prof, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return prof, nil
		}
		return nil, fmt.Errorf("failed to read portal profile: %w", err)
	}

	if err := yaml.Unmarshal(data, prof); err != nil {
		return nil, fmt.Errorf("failed to parse portal profile: %w", err)
	}
	return prof, nil
}

// ReservationURL builds the reservation page URL for a MM/DD/YYYY date. The
// date goes in unescaped; the portal expects literal slashes in
// selectedDate.
func (p *Profile) ReservationURL(dateParam string) string {
	return fmt.Sprintf("%s?amenityId=%d&from=0&selectedDate=%s",
		p.ReservationBase, p.AmenityID, dateParam)
}
