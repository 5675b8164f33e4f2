package anthropic

// BuildCachedSystemBlocks wraps a system prompt in a single block with an
// ephemeral cache breakpoint. Stage prompts are reused across tenants, so
// repeated calls within the TTL read the prompt from cache.
func BuildCachedSystemBlocks(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
