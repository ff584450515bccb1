package simpleasset

import "strings"

// Category is an asset category from the closed taxonomy below.
type Category string

// Category constants (typed). Every constant must have a taxonomy entry.
const (
	CategoryCatalog      Category = "catalogo"
	CategoryPriceTable   Category = "tabela_precos"
	CategoryManual       Category = "manual"
	CategoryPresentation Category = "apresentacao"
	CategoryContract     Category = "contrato"
	CategoryProposal     Category = "proposta"
	CategoryTraining     Category = "treinamento"
	CategoryImage        Category = "imagem"
	CategoryDocument     Category = "documento"
	CategoryOther        Category = "outro"
)

// Bucket families. A blob store is registered per family.
const (
	FamilyAIFiles = "ai-files"
	FamilyFiles   = "files"
)

// TaxonomyVersion changes whenever an entry is added, removed or remapped.
const TaxonomyVersion = 3

// CategorySpec is one row of the taxonomy.
type CategorySpec struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Folder   string   `json:"folder"`
	Family   string   `json:"family"`
	// Subcategories lists permitted subcategory tokens; empty allows free text.
	Subcategories []string `json:"subcategories,omitempty"`
}

var taxonomy = []CategorySpec{
	{Category: CategoryCatalog, Label: "Catálogo", Folder: "catalogos", Family: FamilyAIFiles},
	{Category: CategoryPriceTable, Label: "Tabela de preços", Folder: "tabelas-precos", Family: FamilyAIFiles},
	{Category: CategoryManual, Label: "Manual técnico", Folder: "manuais", Family: FamilyAIFiles},
	{Category: CategoryPresentation, Label: "Apresentação", Folder: "apresentacoes", Family: FamilyAIFiles},
	{Category: CategoryContract, Label: "Contrato modelo", Folder: "contratos", Family: FamilyAIFiles},
	{Category: CategoryProposal, Label: "Proposta modelo", Folder: "propostas", Family: FamilyAIFiles},
	{Category: CategoryTraining, Label: "Treinamento", Folder: "treinamentos", Family: FamilyAIFiles,
		Subcategories: []string{"vendas", "produto", "atendimento", "onboarding"}},
	{Category: CategoryImage, Label: "Imagem", Folder: "imagens", Family: FamilyFiles},
	{Category: CategoryDocument, Label: "Documento", Folder: "documentos", Family: FamilyFiles},
	{Category: CategoryOther, Label: "Outros", Folder: "outros", Family: FamilyFiles},
}

var taxonomyIndex = func() map[Category]CategorySpec {
	m := make(map[Category]CategorySpec, len(taxonomy))
	for _, spec := range taxonomy {
		m[spec.Category] = spec
	}
	return m
}()

// LookupCategory returns the taxonomy entry for c. Unknown categories fail
// with *UnknownCategoryError; there is no catch-all folder.
func LookupCategory(c Category) (CategorySpec, error) {
	spec, ok := taxonomyIndex[c]
	if !ok {
		return CategorySpec{}, &UnknownCategoryError{Category: c}
	}
	return spec, nil
}

// ParseCategory normalizes s and looks it up.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, err := LookupCategory(c); err != nil {
		return "", err
	}
	return c, nil
}

// Categories returns the taxonomy in declaration order.
func Categories() []CategorySpec {
	out := make([]CategorySpec, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// Families returns the distinct bucket families used by the taxonomy.
func Families() []string {
	seen := make(map[string]bool)
	var out []string
	for _, spec := range taxonomy {
		if !seen[spec.Family] {
			seen[spec.Family] = true
			out = append(out, spec.Family)
		}
	}
	return out
}

// permitsSubcategory reports whether the normalized token is allowed.
func (s CategorySpec) permitsSubcategory(token string) bool {
	if len(s.Subcategories) == 0 {
		return true
	}
	for _, allowed := range s.Subcategories {
		if allowed == token {
			return true
		}
	}
	return false
}
