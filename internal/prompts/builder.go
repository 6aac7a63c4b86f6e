package prompts

import (
	"fmt"

	"github.com/alanmeadows/lit-critic/internal/domain"
)

var lensTemplateNames = map[domain.Lens]string{
	domain.LensProse:      "lens_prose.md",
	domain.LensStructure:  "lens_structure.md",
	domain.LensLogic:      "lens_logic.md",
	domain.LensClarity:    "lens_clarity.md",
	domain.LensContinuity: "lens_continuity.md",
	domain.LensDialogue:   "lens_dialogue.md",
}

// DiscussionPromptData supplies the fields discussion.md interpolates.
type DiscussionPromptData struct {
	Number        int
	Severity      string
	Lens          string
	Location      string
	LineRange     string
	Evidence      string
	Impact        string
	Options       string
	PriorOutcomes string
	Scene         string
}

// ReEvaluatePromptData supplies the fields reevaluate.md interpolates.
type ReEvaluatePromptData struct {
	Number   int
	Severity string
	Lens     string
	Location string
	Evidence string
	Impact   string
	Scene    string
}

// Builder is the opaque prompt-construction capability every upper layer
// (pipeline, discussion) depends on. Concrete template authoring is
// out of scope per spec §1; Builder hides it behind this interface.
type Builder interface {
	LensPrompt(lens domain.Lens, projectContext, scene string) (string, error)
	CoordinatorPrompt(chunkName, lensFindings, scene string) (string, error)
	DiscussionPrompt(data DiscussionPromptData) (string, error)
	ReEvaluatePrompt(data ReEvaluatePromptData) (string, error)
}

// TemplateBuilder implements Builder on top of the embedded/override
// template loader in this package.
type TemplateBuilder struct{}

// NewTemplateBuilder returns the default Builder.
func NewTemplateBuilder() *TemplateBuilder { return &TemplateBuilder{} }

var _ Builder = (*TemplateBuilder)(nil)

func (TemplateBuilder) LensPrompt(lens domain.Lens, projectContext, scene string) (string, error) {
	name, ok := lensTemplateNames[lens]
	if !ok {
		return "", fmt.Errorf("no prompt template for lens %q", lens)
	}
	return Execute(name, map[string]string{
		"ProjectContext": projectContext,
		"Scene":          scene,
	})
}

func (TemplateBuilder) CoordinatorPrompt(chunkName, lensFindings, scene string) (string, error) {
	return Execute("coordinator.md", map[string]string{
		"ChunkName":    chunkName,
		"LensFindings": lensFindings,
		"Scene":        scene,
	})
}

func (TemplateBuilder) ReEvaluatePrompt(data ReEvaluatePromptData) (string, error) {
	return Execute("reevaluate.md", map[string]string{
		"Number":   fmt.Sprintf("%d", data.Number),
		"Severity": data.Severity,
		"Lens":     data.Lens,
		"Location": data.Location,
		"Evidence": data.Evidence,
		"Impact":   data.Impact,
		"Scene":    data.Scene,
	})
}

func (TemplateBuilder) DiscussionPrompt(data DiscussionPromptData) (string, error) {
	return Execute("discussion.md", map[string]string{
		"Number":        fmt.Sprintf("%d", data.Number),
		"Severity":      data.Severity,
		"Lens":          data.Lens,
		"Location":      data.Location,
		"LineRange":     data.LineRange,
		"Evidence":      data.Evidence,
		"Impact":        data.Impact,
		"Options":       data.Options,
		"PriorOutcomes": data.PriorOutcomes,
		"Scene":         data.Scene,
	})
}
