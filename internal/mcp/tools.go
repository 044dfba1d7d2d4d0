package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var assessToolDef = mcp.NewTool("image_assess",
	mcp.WithDescription("Assess whether an image filename already describes its content, and plan a replacement name if not. Never modifies anything."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the image file"),
	),
	mcp.WithString("provider",
		mcp.Description("Vision provider override: ollama or openai"),
	),
	mcp.WithString("model",
		mcp.Description("Vision model override"),
	),
)

var renameFileToolDef = mcp.NewTool("image_rename",
	mcp.WithDescription("Plan and optionally apply a content-derived filename for a single image, with optional markdown reference rewriting."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to the image file"),
	),
	mcp.WithBoolean("apply",
		mcp.Description("Perform the rename; default is a dry run"),
	),
	mcp.WithBoolean("update_refs",
		mcp.Description("Rewrite markdown references after applying"),
	),
	mcp.WithString("refs_root",
		mcp.Description("Directory scanned for markdown documents; defaults to the image's directory"),
	),
	mcp.WithBoolean("recursive",
		mcp.Description("Reference scan walks subdirectories"),
	),
	mcp.WithString("provider",
		mcp.Description("Vision provider override: ollama or openai"),
	),
	mcp.WithString("model",
		mcp.Description("Vision model override"),
	),
)

var renameFolderToolDef = mcp.NewTool("folder_rename",
	mcp.WithDescription("Plan and optionally apply content-derived filenames for every supported image directly under a directory. Collisions get numeric suffixes; per-image failures never halt the batch."),
	mcp.WithString("dir",
		mcp.Required(),
		mcp.Description("Directory containing images"),
	),
	mcp.WithBoolean("apply",
		mcp.Description("Perform the renames; default is a dry run"),
	),
	mcp.WithBoolean("update_refs",
		mcp.Description("Rewrite markdown references after applying"),
	),
	mcp.WithString("refs_root",
		mcp.Description("Directory scanned for markdown documents; defaults to dir"),
	),
	mcp.WithBoolean("recursive",
		mcp.Description("Reference scan walks subdirectories"),
	),
	mcp.WithString("provider",
		mcp.Description("Vision provider override: ollama or openai"),
	),
	mcp.WithString("model",
		mcp.Description("Vision model override"),
	),
)

var findRefsToolDef = mcp.NewTool("refs_find",
	mcp.WithDescription("Locate markdown references (inline images, links, wiki links, wiki embeds) to image files. References inside code blocks are ignored."),
	mcp.WithString("root",
		mcp.Required(),
		mcp.Description("Directory scanned for markdown documents"),
	),
	mcp.WithArray("names",
		mcp.Description("Image basenames to look for; defaults to every supported image under asset_dir"),
		mcp.WithStringItems(),
	),
	mcp.WithString("asset_dir",
		mcp.Description("Directory listed for image names when names is empty; defaults to root"),
	),
	mcp.WithBoolean("recursive",
		mcp.Description("Scan walks subdirectories"),
	),
)
