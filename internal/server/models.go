package server

type modelPermission struct {
	ID                 string  `json:"id"`
	Object             string  `json:"object"`
	Created            int64   `json:"created"`
	AllowCreateEngine  bool    `json:"allow_create_engine"`
	AllowSampling      bool    `json:"allow_sampling"`
	AllowLogprobs      bool    `json:"allow_logprobs"`
	AllowSearchIndices bool    `json:"allow_search_indices"`
	AllowView          bool    `json:"allow_view"`
	AllowFineTuning    bool    `json:"allow_fine_tuning"`
	Organization       string  `json:"organization"`
	Group              *string `json:"group"`
	IsBlocking         bool    `json:"is_blocking"`
}

type modelDescriptor struct {
	ID         string            `json:"id"`
	Object     string            `json:"object"`
	Created    int64             `json:"created"`
	OwnedBy    string            `json:"owned_by"`
	Permission []modelPermission `json:"permission"`
	Root       string            `json:"root"`
	Parent     *string           `json:"parent"`
}

type modelsResponse struct {
	Object string            `json:"object"`
	Data   []modelDescriptor `json:"data"`
}

// supportedModels returns the single descriptor the gateway serves. The
// upstream backend accepts exactly one anonymous model, so the listing is
// static.
func supportedModels() []modelDescriptor {
	return []modelDescriptor{
		{
			ID:      servedModel,
			Object:  "model",
			Created: 1626777600,
			OwnedBy: "openai",
			Permission: []modelPermission{
				{
					ID:                 "modelperm-001",
					Object:             "model_permission",
					Created:            1626777600,
					AllowCreateEngine:  true,
					AllowSampling:      true,
					AllowLogprobs:      true,
					AllowSearchIndices: false,
					AllowView:          true,
					AllowFineTuning:    false,
					Organization:       "*",
				},
			},
			Root: servedModel,
		},
	}
}
