package history

import (
	"time"

	"github.com/magabrotheeeer/datesantiere/internal/models"
)

// field сравниваемое поле карточки и функция доступа к его значению.
type field struct {
	name string
	get  func(s *models.Santier) any
}

// santierFields все поля карточки, изменения которых попадают в историю.
// CreatedAt и UpdatedAt сюда не входят.
var santierFields = []field{
	{"Name", func(s *models.Santier) any { return s.Name }},
	{"Description", func(s *models.Santier) any { return str(s.Description) }},
	{"Judet", func(s *models.Santier) any { return s.Judet }},
	{"Localitate", func(s *models.Santier) any { return s.Localitate }},
	{"Adresa", func(s *models.Santier) any { return str(s.Adresa) }},
	{"Categorie", func(s *models.Santier) any { return s.Categorie }},
	{"Subcategorie", func(s *models.Santier) any { return str(s.Subcategorie) }},
	{"Beneficiar", func(s *models.Santier) any { return s.Beneficiar }},
	{"BeneficiarCUI", func(s *models.Santier) any { return str(s.BeneficiarCUI) }},
	{"ContactPersoana", func(s *models.Santier) any { return str(s.ContactPersoana) }},
	{"ContactTelefon", func(s *models.Santier) any { return str(s.ContactTelefon) }},
	{"ContactEmail", func(s *models.Santier) any { return str(s.ContactEmail) }},
	{"ValoareEstimata", func(s *models.Santier) any { return num(s.ValoareEstimata) }},
	{"Status", func(s *models.Santier) any { return str(s.Status) }},
	{"DataIncepere", func(s *models.Santier) any { return date(s.DataIncepere) }},
	{"DataFinalizare", func(s *models.Santier) any { return date(s.DataFinalizare) }},
	{"Proiectant", func(s *models.Santier) any { return str(s.Proiectant) }},
	{"Constructor", func(s *models.Santier) any { return str(s.Constructor) }},
	{"Observatii", func(s *models.Santier) any { return str(s.Observatii) }},
	{"IsActive", func(s *models.Santier) any { return s.IsActive }},
	{"IsFeatured", func(s *models.Santier) any { return s.IsFeatured }},
	{"Latitude", func(s *models.Santier) any { return num(s.Latitude) }},
	{"Longitude", func(s *models.Santier) any { return num(s.Longitude) }},
}

// Значения приводятся к сравнимым типам: nil для отсутствующих, иначе само значение.

func str(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func num(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func date(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC().Format(time.RFC3339)
}

// diff возвращает изменившиеся поля в порядке santierFields.
func diff(before, after *models.Santier) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)
	for _, f := range santierFields {
		b, a := f.get(before), f.get(after)
		if b != a {
			changes[f.name] = models.FieldChange{Before: b, After: a}
		}
	}
	return changes
}
