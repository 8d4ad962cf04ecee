package tasks

const (
	TypeRecipePublished = "recipe:published"
	TypeImageDelete     = "image:delete"
)

type RecipePublishedPayload struct {
	RecipeID     uint              `json:"recipe_id"`
	AuthorID     uint              `json:"author_id"`
	RecipeName   string            `json:"recipe_name"`
	TraceContext map[string]string `json:"trace_context"`
}

type ImageDeletePayload struct {
	Key          string            `json:"key"`
	TraceContext map[string]string `json:"trace_context"`
}
