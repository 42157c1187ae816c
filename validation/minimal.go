package validation

import (
	"sort"

	"github.com/Skryldev/gltf-importer/gltf"
)

// Minimal checks the structural properties the importer itself depends on:
// every cross reference must point at an existing element and every image
// must name exactly one pixel source. Violations come back in document walk
// order; an empty result means the document is safe to resolve.
func Minimal(doc *gltf.Document) []Violation {
	c := &collector{}
	walkMinimal(c, doc)
	return c.out
}

func walkMinimal(c *collector, doc *gltf.Document) {
	var (
		nScenes    = len(doc.Scenes)
		nNodes     = len(doc.Nodes)
		nMeshes    = len(doc.Meshes)
		nAccessors = len(doc.Accessors)
		nViews     = len(doc.BufferViews)
		nBuffers   = len(doc.Buffers)
		nMaterials = len(doc.Materials)
		nTextures  = len(doc.Textures)
		nImages    = len(doc.Images)
		nSamplers  = len(doc.Samplers)
		nSkins     = len(doc.Skins)
		nCameras   = len(doc.Cameras)
	)

	c.checkOptIndex(Path("scene"), doc.Scene, nScenes, "scene")

	for i, s := range doc.Scenes {
		p := Path("scenes").Index(i)
		for j, n := range s.Nodes {
			c.checkIndex(p.Field("nodes").Index(j), n, nNodes, "node")
		}
	}

	for i, n := range doc.Nodes {
		p := Path("nodes").Index(i)
		c.checkOptIndex(p.Field("camera"), n.Camera, nCameras, "camera")
		for j, child := range n.Children {
			c.checkIndex(p.Field("children").Index(j), child, nNodes, "node")
		}
		c.checkOptIndex(p.Field("mesh"), n.Mesh, nMeshes, "mesh")
		c.checkOptIndex(p.Field("skin"), n.Skin, nSkins, "skin")
	}

	for i, m := range doc.Meshes {
		p := Path("meshes").Index(i)
		for j, prim := range m.Primitives {
			pp := p.Field("primitives").Index(j)
			for _, name := range sortedKeys(prim.Attributes) {
				c.checkIndex(pp.Field("attributes").Key(name), prim.Attributes[name], nAccessors, "accessor")
			}
			c.checkOptIndex(pp.Field("indices"), prim.Indices, nAccessors, "accessor")
			c.checkOptIndex(pp.Field("material"), prim.Material, nMaterials, "material")
			for t, target := range prim.Targets {
				tp := pp.Field("targets").Index(t)
				for _, name := range sortedKeys(target) {
					c.checkIndex(tp.Key(name), target[name], nAccessors, "accessor")
				}
			}
		}
	}

	for i, a := range doc.Accessors {
		c.checkOptIndex(Path("accessors").Index(i).Field("bufferView"), a.BufferView, nViews, "bufferView")
	}

	for i, v := range doc.BufferViews {
		p := Path("bufferViews").Index(i)
		c.checkIndex(p.Field("buffer"), v.Buffer, nBuffers, "buffer")
		if v.ByteOffset < 0 {
			c.report(p.Field("byteOffset"), Invalid, "must not be negative, got %d", v.ByteOffset)
		}
		if v.ByteLength < 0 {
			c.report(p.Field("byteLength"), Invalid, "must not be negative, got %d", v.ByteLength)
		}
	}

	for i, m := range doc.Materials {
		p := Path("materials").Index(i)
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			pp := p.Field("pbrMetallicRoughness")
			checkTextureInfo(c, pp.Field("baseColorTexture"), pbr.BaseColorTexture, nTextures)
			checkTextureInfo(c, pp.Field("metallicRoughnessTexture"), pbr.MetallicRoughnessTexture, nTextures)
		}
		checkTextureInfo(c, p.Field("normalTexture"), m.NormalTexture, nTextures)
		checkTextureInfo(c, p.Field("occlusionTexture"), m.OcclusionTexture, nTextures)
		checkTextureInfo(c, p.Field("emissiveTexture"), m.EmissiveTexture, nTextures)
	}

	for i, t := range doc.Textures {
		p := Path("textures").Index(i)
		c.checkOptIndex(p.Field("sampler"), t.Sampler, nSamplers, "sampler")
		c.checkOptIndex(p.Field("source"), t.Source, nImages, "image")
	}

	for i, img := range doc.Images {
		checkImage(c, Path("images").Index(i), img, nViews)
	}

	for i, s := range doc.Skins {
		p := Path("skins").Index(i)
		c.checkOptIndex(p.Field("inverseBindMatrices"), s.InverseBindMatrices, nAccessors, "accessor")
		c.checkOptIndex(p.Field("skeleton"), s.Skeleton, nNodes, "node")
		for j, joint := range s.Joints {
			c.checkIndex(p.Field("joints").Index(j), joint, nNodes, "node")
		}
	}

	for i, a := range doc.Animations {
		p := Path("animations").Index(i)
		for j, ch := range a.Channels {
			cp := p.Field("channels").Index(j)
			c.checkIndex(cp.Field("sampler"), ch.Sampler, len(a.Samplers), "animation sampler")
			c.checkOptIndex(cp.Field("target").Field("node"), ch.Target.Node, nNodes, "node")
		}
		for j, s := range a.Samplers {
			sp := p.Field("samplers").Index(j)
			c.checkIndex(sp.Field("input"), s.Input, nAccessors, "accessor")
			c.checkIndex(sp.Field("output"), s.Output, nAccessors, "accessor")
		}
	}
}

func checkTextureInfo(c *collector, p Path, info *gltf.TextureInfo, nTextures int) {
	if info != nil {
		c.checkIndex(p.Field("index"), info.Index, nTextures, "texture")
	}
}

func checkImage(c *collector, p Path, img gltf.Image, nViews int) {
	switch {
	case img.URI != "" && img.BufferView != nil:
		c.report(p, Invalid, "uri and bufferView are mutually exclusive")
		return
	case img.URI == "" && img.BufferView == nil:
		c.report(p.Field("uri"), Missing, "image needs a uri or a bufferView")
		return
	}
	if img.BufferView != nil {
		c.checkIndex(p.Field("bufferView"), *img.BufferView, nViews, "bufferView")
		if img.MimeType == "" {
			c.report(p.Field("mimeType"), Missing, "required with bufferView")
			return
		}
	}
	if img.MimeType != "" && !SupportedMimeType(img.MimeType) {
		c.report(p.Field("mimeType"), Unsupported, "%q", img.MimeType)
	}
}

// SupportedMimeType reports whether an image MIME type can be decoded.
func SupportedMimeType(mime string) bool {
	switch mime {
	case gltf.MimeJPEG, gltf.MimePNG, gltf.MimeWebP:
		return true
	}
	return false
}

// sortedKeys returns map keys in a stable order so violations are reproducible.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
