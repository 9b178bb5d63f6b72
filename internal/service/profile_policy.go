package service

import (
	"strings"

	"ceebrain-identity/internal/domain"
)

// ProfileUpdate trae solo los campos editables por el propio usuario. Un
// puntero nil significa "no enviado".
type ProfileUpdate struct {
	FullName                *string        `json:"fullName"`
	DateOfBirth             *string        `json:"dateOfBirth"`
	Gender                  *string        `json:"gender"`
	IdentityType            *string        `json:"identityType"`
	ProfileImage            *string        `json:"profileImage"`
	Address                 *AddressUpdate `json:"address"`
	BelowPovertyLine        *bool          `json:"belowPovertyLine"`
	UnderprivilegedCategory *bool          `json:"underprivilegedCategory"`
}

type AddressUpdate struct {
	AddressLine1 *string  `json:"addressLine1"`
	AddressLine2 *string  `json:"addressLine2"`
	Landmark     *string  `json:"landmark"`
	City         *string  `json:"city"`
	District     *string  `json:"district"`
	State        *string  `json:"state"`
	Country      *string  `json:"country"`
	PostalCode   *string  `json:"postalCode"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

// profileRule aplica un campo si vino en la peticion. Devuelve false si el
// campo no estaba presente.
type profileRule struct {
	field string
	apply func(u *domain.User, upd ProfileUpdate) (bool, error)
}

// profileUpdatePolicy es la lista cerrada de campos editables. Email, movil,
// password, estado, verificacion, rol y contadores de login no figuran y por
// lo tanto nunca se modifican por esta via.
var profileUpdatePolicy = []profileRule{
	{"fullName", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.FullName == nil {
			return false, nil
		}
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return false, validationError("fullName", "fullName cannot be empty")
		}
		if len(name) > maxFullNameLength {
			return false, validationError("fullName", "Full name cannot exceed 100 characters")
		}
		u.FullName = name
		return true, nil
	}},
	{"dateOfBirth", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.DateOfBirth == nil {
			return false, nil
		}
		dob, ok := parseDate(*upd.DateOfBirth)
		if !ok {
			return false, validationError("dateOfBirth", "Invalid dateOfBirth")
		}
		u.DateOfBirth = dob
		return true, nil
	}},
	{"gender", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.Gender == nil {
			return false, nil
		}
		g := domain.Gender(strings.TrimSpace(*upd.Gender))
		if !g.Valid() {
			return false, validationError("gender", "Invalid gender value")
		}
		u.Gender = g
		return true, nil
	}},
	{"identityType", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.IdentityType == nil {
			return false, nil
		}
		t := domain.IdentityType(strings.TrimSpace(*upd.IdentityType))
		if !t.Valid() {
			return false, validationError("identityType", "Invalid identityType value")
		}
		u.IdentityType = t
		return true, nil
	}},
	{"profileImage", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.ProfileImage == nil {
			return false, nil
		}
		u.ProfileImage = strings.TrimSpace(*upd.ProfileImage)
		return true, nil
	}},
	{"address", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.Address == nil {
			return false, nil
		}
		return applyAddressUpdate(&u.Address, *upd.Address)
	}},
	{"belowPovertyLine", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.BelowPovertyLine == nil {
			return false, nil
		}
		u.BelowPovertyLine = *upd.BelowPovertyLine
		return true, nil
	}},
	{"underprivilegedCategory", func(u *domain.User, upd ProfileUpdate) (bool, error) {
		if upd.UnderprivilegedCategory == nil {
			return false, nil
		}
		u.Underprivileged = *upd.UnderprivilegedCategory
		return true, nil
	}},
}

// applyProfileUpdate recorre la politica y devuelve cuantos campos se aplicaron.
func applyProfileUpdate(u *domain.User, upd ProfileUpdate) (int, error) {
	changed := 0
	for _, rule := range profileUpdatePolicy {
		ok, err := rule.apply(u, upd)
		if err != nil {
			return 0, err
		}
		if ok {
			changed++
		}
	}
	return changed, nil
}

// applyAddressUpdate fusiona los subcampos enviados sobre la direccion guardada.
func applyAddressUpdate(addr *domain.Address, upd AddressUpdate) (bool, error) {
	merged := *addr
	changed := false

	required := []struct {
		name  string
		value *string
		dst   *string
	}{
		{"addressLine1", upd.AddressLine1, &merged.AddressLine1},
		{"city", upd.City, &merged.City},
		{"district", upd.District, &merged.District},
		{"state", upd.State, &merged.State},
		{"country", upd.Country, &merged.Country},
		{"postalCode", upd.PostalCode, &merged.PostalCode},
	}
	for _, f := range required {
		if f.value == nil {
			continue
		}
		v := strings.TrimSpace(*f.value)
		if v == "" {
			return false, validationError("address."+f.name, "address."+f.name+" cannot be empty")
		}
		*f.dst = v
		changed = true
	}

	optional := []struct {
		value *string
		dst   *string
	}{
		{upd.AddressLine2, &merged.AddressLine2},
		{upd.Landmark, &merged.Landmark},
	}
	for _, f := range optional {
		if f.value != nil {
			*f.dst = strings.TrimSpace(*f.value)
			changed = true
		}
	}
	if upd.Latitude != nil {
		merged.Latitude = upd.Latitude
		changed = true
	}
	if upd.Longitude != nil {
		merged.Longitude = upd.Longitude
		changed = true
	}
	if !changed {
		return false, nil
	}

	normalized, err := buildAddress(AddressInput{
		AddressLine1: merged.AddressLine1,
		AddressLine2: merged.AddressLine2,
		Landmark:     merged.Landmark,
		City:         merged.City,
		District:     merged.District,
		State:        merged.State,
		Country:      merged.Country,
		PostalCode:   merged.PostalCode,
		Latitude:     merged.Latitude,
		Longitude:    merged.Longitude,
	})
	if err != nil {
		return false, err
	}
	*addr = normalized
	return true, nil
}
