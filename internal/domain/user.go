package domain

import "fmt"

// User type labels as stored in users.user_type and owner.owner_type.
// Institutions store their institution type (for example "Government",
// "Airport", "University") instead of a fixed label.
const (
	UserTypePrivate = "Private"
	UserTypeAdmin   = "Admin"
)

// FieldCipher reversibly encrypts personal fields that must be shown back in
// clear to an authorised viewer.
type FieldCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// User is the closed union of account variants: *Institution,
// *WeatherWatcher, and *Administrator. Variant behaviour is resolved with
// explicit type switches in the projector functions below.
type User interface {
	UserID() string
	UserType() string
	isUser()
}

// Institution is an organisation that owns stations. Its contact details are
// public.
type Institution struct {
	ID              string
	PasswordHash    string
	Name            string
	InstitutionType string
	Contact         string
	Email           string
	Telephone       string
}

// WeatherWatcher is a private individual submitting manual observations.
type WeatherWatcher struct {
	ID           string
	PasswordHash string
	DisplayName  string
	Name         string
	Email        string
}

// Administrator has read/write access to every collection and owns nothing.
type Administrator struct {
	ID           string
	PasswordHash string
	Name         string
	Email        string
}

func (u *Institution) UserID() string    { return u.ID }
func (u *WeatherWatcher) UserID() string { return u.ID }
func (u *Administrator) UserID() string  { return u.ID }

func (u *Institution) UserType() string    { return u.InstitutionType }
func (u *WeatherWatcher) UserType() string { return UserTypePrivate }
func (u *Administrator) UserType() string  { return UserTypeAdmin }

func (*Institution) isUser()    {}
func (*WeatherWatcher) isUser() {}
func (*Administrator) isUser()  {}

// UserDoc is the storage projection of every user variant.
type UserDoc struct {
	ID          string `bson:"_id"`
	Password    string `bson:"password"`
	UserType    string `bson:"user_type"`
	Institution string `bson:"institution,omitempty"`
	Contact     string `bson:"contact,omitempty"`
	Name        string `bson:"name,omitempty"`
	DisplayName string `bson:"display_name,omitempty"`
	Email       string `bson:"email,omitempty"`
	Telephone   string `bson:"telephone,omitempty"`
}

// OwnerSubset is the embedded copy of an owner. Contact fields are only
// populated in the station projection of an institution.
type OwnerSubset struct {
	OwnerType string `bson:"owner_type" json:"owner_type"`
	UserID    string `bson:"user_id" json:"user_id"`
	Name      string `bson:"name" json:"name"`
	Contact   string `bson:"contact,omitempty" json:"contact,omitempty"`
	Email     string `bson:"email,omitempty" json:"email,omitempty"`
	Telephone string `bson:"telephone,omitempty" json:"telephone,omitempty"`
}

// ReportView narrows a station owner subset to the report projection.
func (o OwnerSubset) ReportView() OwnerSubset {
	return OwnerSubset{OwnerType: o.OwnerType, UserID: o.UserID, Name: o.Name}
}

// UserStorageDoc projects a user into its users collection document,
// encrypting personal fields of watchers and administrators.
func UserStorageDoc(u User, cipher FieldCipher) (UserDoc, error) {
	switch v := u.(type) {
	case *Institution:
		return UserDoc{
			ID:          v.ID,
			Password:    v.PasswordHash,
			UserType:    v.InstitutionType,
			Institution: v.Name,
			Contact:     v.Contact,
			Email:       v.Email,
			Telephone:   v.Telephone,
		}, nil
	case *WeatherWatcher:
		name, email, err := sealPersonal(cipher, v.Name, v.Email)
		if err != nil {
			return UserDoc{}, fmt.Errorf("project user %s: %w", v.ID, err)
		}
		return UserDoc{
			ID:          v.ID,
			Password:    v.PasswordHash,
			UserType:    UserTypePrivate,
			Name:        name,
			DisplayName: v.DisplayName,
			Email:       email,
		}, nil
	case *Administrator:
		name, email, err := sealPersonal(cipher, v.Name, v.Email)
		if err != nil {
			return UserDoc{}, fmt.Errorf("project user %s: %w", v.ID, err)
		}
		return UserDoc{
			ID:       v.ID,
			Password: v.PasswordHash,
			UserType: UserTypeAdmin,
			Name:     name,
			Email:    email,
		}, nil
	default:
		return UserDoc{}, fmt.Errorf("unknown user variant %T", u)
	}
}

func sealPersonal(cipher FieldCipher, name, email string) (string, string, error) {
	encName, err := cipher.Encrypt(name)
	if err != nil {
		return "", "", fmt.Errorf("encrypt name: %w", err)
	}
	encEmail, err := cipher.Encrypt(email)
	if err != nil {
		return "", "", fmt.Errorf("encrypt email: %w", err)
	}
	return encName, encEmail, nil
}

// StationOwnerSubset projects an owner for embedding in a station document.
func StationOwnerSubset(u User) (OwnerSubset, error) {
	switch v := u.(type) {
	case *Institution:
		return OwnerSubset{
			OwnerType: v.InstitutionType,
			UserID:    v.ID,
			Name:      v.Name,
			Contact:   v.Contact,
			Email:     v.Email,
			Telephone: v.Telephone,
		}, nil
	case *WeatherWatcher:
		return OwnerSubset{OwnerType: UserTypePrivate, UserID: v.ID, Name: v.DisplayName}, nil
	case nil:
		return OwnerSubset{}, fmt.Errorf("%w: no owner", ErrNotAnOwner)
	default:
		return OwnerSubset{}, fmt.Errorf("%w: %s", ErrNotAnOwner, u.UserID())
	}
}

// ReportOwnerSubset projects an owner for embedding in a weather report.
func ReportOwnerSubset(u User) (OwnerSubset, error) {
	s, err := StationOwnerSubset(u)
	if err != nil {
		return OwnerSubset{}, err
	}
	return s.ReportView(), nil
}

// OwnerNameField is the users collection field that holds the name copied
// into owner subsets for the given user type.
func OwnerNameField(userType string) (string, error) {
	switch userType {
	case UserTypeAdmin:
		return "", ErrNotAnOwner
	case UserTypePrivate:
		return "display_name", nil
	default:
		return "institution", nil
	}
}

// OwnerName reads the owner-subset name back from a stored user document.
func (d UserDoc) OwnerName() string {
	if d.UserType == UserTypePrivate {
		return d.DisplayName
	}
	return d.Institution
}

// UserFromDoc rebuilds the user variant from its stored document, decrypting
// personal fields.
func UserFromDoc(d UserDoc, cipher FieldCipher) (User, error) {
	switch d.UserType {
	case UserTypePrivate, UserTypeAdmin:
		name, err := cipher.Decrypt(d.Name)
		if err != nil {
			return nil, fmt.Errorf("decrypt name of %s: %w", d.ID, err)
		}
		email, err := cipher.Decrypt(d.Email)
		if err != nil {
			return nil, fmt.Errorf("decrypt email of %s: %w", d.ID, err)
		}
		if d.UserType == UserTypeAdmin {
			return &Administrator{ID: d.ID, PasswordHash: d.Password, Name: name, Email: email}, nil
		}
		return &WeatherWatcher{ID: d.ID, PasswordHash: d.Password, DisplayName: d.DisplayName, Name: name, Email: email}, nil
	default:
		return &Institution{
			ID:              d.ID,
			PasswordHash:    d.Password,
			Name:            d.Institution,
			InstitutionType: d.UserType,
			Contact:         d.Contact,
			Email:           d.Email,
			Telephone:       d.Telephone,
		}, nil
	}
}
