// Package metabind is the composition root for block field binding.
//
// A block type declares fields. Each field is stored either as an attribute
// of one block placement or as meta of the post the placement belongs to.
// Every placement on a post sees the same meta values, while attribute
// values belong to a single placement.
//
// Components:
//
//   - **Schema registry** (pkg/schema): block definitions, built in or loaded from YAML.
//   - **Persistence** (pkg/persist): routes each field to the right store and notifies observers.
//   - **Binding** (pkg/binding): editor controls that write on every change.
//   - **Rendering** (pkg/render): server-side HTML for persisted values.
//   - **Storage** (pkg/adapters): memory, Markdown files with optional git revisions, or SQLite.
//
// Usage:
//
//	site, err := metabind.New("./site",
//		metabind.WithAutoInit(true),
//		metabind.WithLogger(logger),
//	)
//
//	inst, _ := site.Service.PlaceBlock(ctx, "42", schema.BookDetailsBlock, "")
//	form, _ := site.Binder.Bind(ctx, schema.BookDetailsBlock, inst.Scope())
//	_ = form.Control(schema.BookAuthorKey).Change(ctx, "Jane Doe")
//
//	html, _ := site.Renderer.Post(ctx, "42")
package metabind
