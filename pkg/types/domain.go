package types

// Model describes a GGUF model file on disk.
type Model struct {
	// Stable identifier for the model (file name without extension).
	// example: capybarahermes-2.5-mistral-7b.Q3_K_S
	ID string `json:"id" example:"capybarahermes-2.5-mistral-7b.Q3_K_S"`
	// Human-friendly name.
	// example: capybarahermes-2.5-mistral-7b
	Name string `json:"name" example:"capybarahermes-2.5-mistral-7b"`
	// Absolute path to the model file on disk.
	// example: /srv/ancestor/models/capybarahermes-2.5-mistral-7b.Q3_K_S.gguf
	Path string `json:"path" example:"/srv/ancestor/models/capybarahermes-2.5-mistral-7b.Q3_K_S.gguf"`
	// Quantization level or variant string.
	// example: Q3_K_S
	Quant string `json:"quant,omitempty" example:"Q3_K_S"`
	// Size on disk in bytes.
	// example: 3164567552
	SizeBytes int64 `json:"size_bytes,omitempty" example:"3164567552"`
}
