package entities

import "strings"

// Provider is a practitioner whose calendar can be booked
type Provider struct {
	ID          string   `json:"id" bson:"-"`
	Name        string   `json:"name" bson:"name"`
	Specialties []string `json:"specialties" bson:"specialties"`
}

// HasSpecialty matches case-insensitively
func (p *Provider) HasSpecialty(specialty string) bool {
	for _, s := range p.Specialties {
		if strings.EqualFold(s, specialty) {
			return true
		}
	}
	return false
}
