package model

import "time"

// Profile represents a row in the `profiles` table.  There is exactly one
// profile per identity and its ID equals the identity's user ID.  The raw
// national identity number is never stored, only IDNumberHash.
type Profile struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	FullName         string    `json:"full_name"`
	Email            string    `json:"email"`
	Phone            *string   `json:"phone"`
	PhoneVerified    bool      `json:"phone_verified"`
	Birthday         *string   `json:"birthday"` // YYYY-MM-DD
	AvatarURL        *string   `json:"avatar_url"`
	IDNumberHash     *string   `json:"id_number_hash"`
	PreferredStoreID *string   `json:"preferred_store_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfileUpdate carries the user-editable profile fields.  Nil pointers are
// left untouched; an empty Phone clears the stored number.
type ProfileUpdate struct {
	FullName         *string `json:"full_name,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Birthday         *string `json:"birthday,omitempty"`
	AvatarURL        *string `json:"avatar_url,omitempty"`
	PreferredStoreID *string `json:"preferred_store_id,omitempty"`
}
