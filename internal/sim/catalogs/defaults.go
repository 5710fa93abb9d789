package catalogs

import "encoding/json"

var defaultBlocks = []BlockDef{
	{ID: "ai", Name: "Artificial Intelligence", Description: "Neural networks and deep learning integration.", Color: RGB{0x39, 0xff, 0x14}},
	{ID: "sim", Name: "Simulation", Description: "Physics engines and digital twins.", Color: RGB{0x00, 0xf3, 0xff}},
	{ID: "gamification", Name: "Gamification", Description: "Engagement mechanics and loops.", Color: RGB{0xff, 0x00, 0xff}},
	{ID: "robotics", Name: "Robotics", Description: "Hardware control and automation.", Color: RGB{0xff, 0x4d, 0x00}},
	{ID: "npc", Name: "Smart NPC", Description: "Non-Player Characters with agency.", Color: RGB{0xff, 0xff, 0x00}},
	{ID: "mcp", Name: "MCP Protocol", Description: "Model Context Protocol for LLMs.", Color: RGB{0xff, 0xff, 0xff}},
	{ID: "realistic", Name: "Realistic", Description: "High-fidelity rendering and assets.", Color: RGB{0x80, 0x80, 0x80}},
	{ID: "optimized", Name: "Optimized", Description: "High performance code.", Color: RGB{0x00, 0x00, 0xff}},
	{ID: "vr", Name: "Virtual Reality", Description: "Immersive headset experiences.", Color: RGB{0x80, 0x00, 0x80}},
	{ID: "webgl", Name: "General Web", Description: "Standard web technologies.", Color: RGB{0x00, 0x80, 0x00}},
	{ID: "mvp", Name: "MVP WebApp", Description: "Minimum Viable Product development.", Color: RGB{0xff, 0xc0, 0xcb}},
	{ID: "nodejs", Name: "NodeJS", Description: "Backend server logic.", Color: RGB{0x00, 0x64, 0x00}},
	{ID: "agents", Name: "Agents", Description: "Autonomous task executors.", Color: RGB{0xff, 0x00, 0x00}},
}

// Default returns the built-in catalog used when no blocks.json is configured.
func Default() *BlockCatalog {
	c, err := build(defaultBlocks)
	if err != nil {
		panic(err)
	}
	raw, _ := json.Marshal(c.defs)
	c.Digest = sha256Hex(raw)
	return c
}
