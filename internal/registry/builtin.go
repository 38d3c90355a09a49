package registry

import "chatd/pkg/types"

// builtinModels is the default catalog used when no catalog file is configured.
var builtinModels = []types.ModelDescriptor{
	{
		ID:           "Qwen/Qwen2.5-VL-3B-Instruct",
		Name:         "Qwen2.5-VL-3B-Instruct",
		Size:         "3B",
		Architecture: types.VisionLanguage,
	},
	{
		ID:           "THUDM/chatglm3-6b",
		Name:         "ChatGLM3-6B",
		Size:         "6B",
		Architecture: types.CausalText,
	},
	{
		ID:           "deepseek-ai/DeepSeek-R1-Distill-Qwen-1.5B",
		Name:         "DeepSeek-R1-Distill-1.5B",
		Size:         "1.5B",
		Architecture: types.CausalText,
	},
}

// Builtin returns the default catalog.
func Builtin() *Registry {
	r, err := New(builtinModels)
	if err != nil {
		panic("registry: invalid builtin catalog: " + err.Error())
	}
	return r
}
