package models

import "time"

// Santier представляет карточку строительного объекта.
type Santier struct {
	ID              int        `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	Judet           string     `json:"judet"`
	Localitate      string     `json:"localitate"`
	Adresa          *string    `json:"adresa,omitempty"`
	Categorie       string     `json:"categorie"`
	Subcategorie    *string    `json:"subcategorie,omitempty"`
	Beneficiar      string     `json:"beneficiar"`
	BeneficiarCUI   *string    `json:"beneficiar_cui,omitempty"`
	ContactPersoana *string    `json:"contact_persoana,omitempty"`
	ContactTelefon  *string    `json:"contact_telefon,omitempty"`
	ContactEmail    *string    `json:"contact_email,omitempty"`
	ValoareEstimata *float64   `json:"valoare_estimata,omitempty"`
	Status          *string    `json:"status,omitempty"`
	DataIncepere    *time.Time `json:"data_incepere,omitempty"`
	DataFinalizare  *time.Time `json:"data_finalizare,omitempty"`
	Proiectant      *string    `json:"proiectant,omitempty"`
	Constructor     *string    `json:"constructor,omitempty"`
	Observatii      *string    `json:"observatii,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	IsActive        bool       `json:"is_active"`
	IsFeatured      bool       `json:"is_featured"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
}

// Preview возвращает копию без контактных данных. Отдаётся, когда месячный лимит просмотров исчерпан.
func (s Santier) Preview() Santier {
	s.BeneficiarCUI = nil
	s.ContactPersoana = nil
	s.ContactTelefon = nil
	s.ContactEmail = nil
	s.Adresa = nil
	s.Observatii = nil
	return s
}

// SantierInput данные для создания и редактирования șantier из админки.
type SantierInput struct {
	ID              int        `json:"id"`
	Name            string     `json:"name" validate:"required,max=500"`
	Description     *string    `json:"description"`
	Judet           string     `json:"judet" validate:"required"`
	Localitate      string     `json:"localitate" validate:"required"`
	Adresa          *string    `json:"adresa"`
	Categorie       string     `json:"categorie" validate:"required"`
	Subcategorie    *string    `json:"subcategorie"`
	Beneficiar      string     `json:"beneficiar" validate:"required"`
	BeneficiarCUI   *string    `json:"beneficiar_cui"`
	ContactPersoana *string    `json:"contact_persoana"`
	ContactTelefon  *string    `json:"contact_telefon"`
	ContactEmail    *string    `json:"contact_email" validate:"omitempty,email"`
	ValoareEstimata *float64   `json:"valoare_estimata"`
	Status          *string    `json:"status"`
	DataIncepere    *time.Time `json:"data_incepere"`
	DataFinalizare  *time.Time `json:"data_finalizare"`
	Proiectant      *string    `json:"proiectant"`
	Constructor     *string    `json:"constructor"`
	Observatii      *string    `json:"observatii"`
	IsActive        *bool      `json:"is_active"`
	IsFeatured      bool       `json:"is_featured"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
}

// Apply переносит поля ввода в существующую запись, не трогая служебные поля.
func (in SantierInput) Apply(s *Santier) {
	s.Name = in.Name
	s.Description = in.Description
	s.Judet = in.Judet
	s.Localitate = in.Localitate
	s.Adresa = in.Adresa
	s.Categorie = in.Categorie
	s.Subcategorie = in.Subcategorie
	s.Beneficiar = in.Beneficiar
	s.BeneficiarCUI = in.BeneficiarCUI
	s.ContactPersoana = in.ContactPersoana
	s.ContactTelefon = in.ContactTelefon
	s.ContactEmail = in.ContactEmail
	s.ValoareEstimata = in.ValoareEstimata
	s.Status = in.Status
	s.DataIncepere = in.DataIncepere
	s.DataFinalizare = in.DataFinalizare
	s.Proiectant = in.Proiectant
	s.Constructor = in.Constructor
	s.Observatii = in.Observatii
	s.IsFeatured = in.IsFeatured
	s.Latitude = in.Latitude
	s.Longitude = in.Longitude
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
}

// SantierFilter параметры выборки списка.
type SantierFilter struct {
	Search          string
	Judet           string
	Categorie       string
	Status          string
	IsActive        *bool // Используется только в админке
	IncludeInactive bool
	Page            int
	PageSize        int
}

// Page страница результатов с общим количеством записей.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPage собирает страницу и считает количество страниц.
func NewPage[T any](items []T, total, page, pageSize int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize, TotalPages: pages}
}

// SiteStats статистика для главной страницы.
type SiteStats struct {
	TotalSantiere int `json:"total_santiere"`
	LastMonth     int `json:"last_month"`
	LastWeek      int `json:"last_week"`
}

// SantierDetails ответ на просмотр карточки с решением о доступе.
type SantierDetails struct {
	Santier      Santier `json:"santier"`
	HasAccess    bool    `json:"has_access"`
	LimitReached bool    `json:"limit_reached"`
	Preview      bool    `json:"preview"`
}
