package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model. Buffer and bind group labels derive from it.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertexLayout is an option builder that selects the interleaved vertex layout. Defaults to VertexLayoutPNU.
//
// Parameters:
//   - layout: the vertex layout
//
// Returns:
//   - ModelBuilderOption: a function that applies the layout option to a model
func WithVertexLayout(layout VertexLayout) ModelBuilderOption {
	return func(m *model) {
		m.layout = layout
	}
}
