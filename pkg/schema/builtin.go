package schema

import "github.com/aretw0/metabind/pkg/core"

// Built-in block type names.
const (
	BookDetailsBlock = "meta-fields/metadata-block"
	TestimonialBlock = "tutorial/post-meta-testimonial"
	ParagraphBlock   = "ka-example-block/ka-example-block"
)

// Meta keys of the book details block.
const (
	BookTitleKey     = "_meta_fields_book_title"
	BookAuthorKey    = "_meta_fields_book_author"
	BookPublisherKey = "_meta_fields_book_publisher"
	BookDateKey      = "_meta_fields_book_date"
)

// Builtin returns the stock block definitions.
func Builtin() []Block {
	return []Block{
		{
			Name:     BookDetailsBlock,
			Title:    "Book details",
			Renderer: "list",
			Fields: []core.FieldSchema{
				{Key: BookTitleKey, Label: "Book title", Storage: core.StorageMeta, Type: core.TypeText, Role: core.RoleTitle, Sanitize: core.SanitizeText},
				{Key: BookAuthorKey, Label: "Book author", Storage: core.StorageMeta, Type: core.TypeText, Sanitize: core.SanitizeText},
				{Key: BookPublisherKey, Label: "Book publisher", Storage: core.StorageMeta, Type: core.TypeText, Sanitize: core.SanitizeText},
				{Key: BookDateKey, Label: "Book date", Storage: core.StorageMeta, Type: core.TypeDate, Sanitize: core.SanitizeText},
			},
		},
		{
			Name:     TestimonialBlock,
			Title:    "Post Meta Testimonial",
			Renderer: "quote",
			Fields: []core.FieldSchema{
				{Key: "testimonial", Label: "Testimonial", Storage: core.StorageMeta, Type: core.TypeRichText, Sanitize: core.SanitizeHTML},
				{Key: "authorName", Label: "Author name", Storage: core.StorageAttribute, Type: core.TypeText},
				{Key: "authorURL", Label: "Author URL", Storage: core.StorageAttribute, Type: core.TypeURL},
			},
		},
		{
			Name:     ParagraphBlock,
			Title:    "KA Example block",
			Renderer: "paragraph",
			Fields: []core.FieldSchema{
				{Key: "content", Label: "Content", Storage: core.StorageAttribute, Type: core.TypeRichText},
				{Key: "align", Label: "Alignment", Storage: core.StorageAttribute, Type: core.TypeText, Default: "none"},
				{Key: "backgroundColor", Label: "Background color", Storage: core.StorageAttribute, Type: core.TypeText},
				{Key: "textColor", Label: "Text color", Storage: core.StorageAttribute, Type: core.TypeText},
			},
		},
	}
}

// RegisterBuiltin registers the stock block definitions.
func RegisterBuiltin(reg *Registry) error {
	for _, b := range Builtin() {
		if err := reg.RegisterBlock(b); err != nil {
			return err
		}
	}
	return nil
}
