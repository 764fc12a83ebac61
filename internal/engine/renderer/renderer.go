// Package renderer draws scenes with OpenGL 4.1 core.
package renderer

import (
	"fmt"
	"slices"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/charscene/internal/engine/debug"
	"github.com/Faultbox/charscene/internal/engine/scene"
	"github.com/Faultbox/charscene/internal/engine/shader"
	"github.com/Faultbox/charscene/internal/engine/texture"
	"github.com/Faultbox/charscene/internal/logger"
	"github.com/Faultbox/charscene/pkg/math"
)

// Fallback projection for cameras that do not provide one.
const (
	defaultFOV  = 0.8
	defaultNear = 1
	defaultFar  = 10000
)

// TextureSource loads the bytes of a texture URL.
type TextureSource func(url string) ([]byte, error)

// Config holds renderer configuration.
type Config struct {
	Width    int
	Height   int
	Textures TextureSource // optional, set later with SetTextureSource
}

type projector interface {
	ProjectionMatrix(aspect float32) math.Mat4
}

// meshBuffers holds the GPU copy of one mesh's geometry.
type meshBuffers struct {
	geometry   *scene.Geometry
	vao        uint32
	vbo        uint32
	nbo        uint32
	tbo        uint32
	ebo        uint32
	indexCount int32
	hasNormals bool
	hasUVs     bool
}

// Renderer implements engine.Backend.
// IMPORTANT: Must be created AFTER the OpenGL context exists, on its thread.
type Renderer struct {
	width, height int
	log           *zap.Logger

	meshProgram    *shader.Program
	lineProgram    *shader.Program
	overlayProgram *shader.Program

	meshes map[*scene.Mesh]*meshBuffers

	// textures by URL; 0 marks a texture that failed to load
	textureSource TextureSource
	textures      map[string]uint32

	lineVAO, lineVBO uint32

	quadVAO, quadVBO uint32
	overlayTex       uint32
	overlayW         int
	overlayH         int
	overlayText      []string

	closed bool
}

// New creates a renderer.
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		width:  cfg.Width,
		height: cfg.Height,
		log:    logger.Named("renderer"),
		meshes: make(map[*scene.Mesh]*meshBuffers),

		textureSource: cfg.Textures,
		textures:      make(map[string]uint32),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	var err error
	if r.meshProgram, err = shader.Compile("mesh", meshVertexShader, meshFragmentShader); err != nil {
		return nil, err
	}
	if r.lineProgram, err = shader.Compile("line", lineVertexShader, lineFragmentShader); err != nil {
		r.Close()
		return nil, err
	}
	if r.overlayProgram, err = shader.Compile("overlay", overlayVertexShader, overlayFragmentShader); err != nil {
		r.Close()
		return nil, err
	}

	r.createLineBuffer()
	r.createOverlayQuad()

	gl.Viewport(0, 0, int32(r.width), int32(r.height))
	return r, nil
}

// SetTextureSource sets where material textures are loaded from. Without
// one, textured materials draw with their diffuse color only.
func (r *Renderer) SetTextureSource(src TextureSource) {
	r.textureSource = src
}

// Resize re-fits the viewport to the drawable size.
func (r *Renderer) Resize(width, height int) {
	r.width = width
	r.height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// DrawScene clears with the scene's clear color and draws its meshes from
// the active camera, then the debug layer when it is visible.
func (r *Renderer) DrawScene(s *scene.Scene) {
	c := s.ClearColor
	gl.ClearColor(c.R, c.G, c.B, c.A)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	r.pruneMeshes(s)

	cam := s.ActiveCamera()
	if cam != nil && r.width > 0 && r.height > 0 {
		viewProj := r.projection(cam).Mul(cam.ViewMatrix())
		r.drawMeshes(s, viewProj)
		if s.DebugLayer().IsVisible() {
			r.drawColliders(s, viewProj)
		}
	}

	if s.DebugLayer().IsVisible() {
		r.drawOverlay(s.DebugLayer().Lines())
	}
}

func (r *Renderer) projection(cam scene.Camera) math.Mat4 {
	aspect := float32(r.width) / float32(r.height)
	if p, ok := cam.(projector); ok {
		return p.ProjectionMatrix(aspect)
	}
	return math.Perspective(defaultFOV, aspect, defaultNear, defaultFar)
}

func (r *Renderer) drawMeshes(s *scene.Scene, viewProj math.Mat4) {
	p := r.meshProgram
	p.Use()

	light := math.V3(0, 1, 0)
	sky, ground := math.Color3{}, math.Color3{}
	if lights := s.Lights(); len(lights) > 0 {
		l := lights[0]
		light = l.Direction.Normalize()
		sky = l.Diffuse.Scale(l.Intensity)
		ground = l.GroundColor.Scale(l.Intensity)
	}
	gl.Uniform3f(p.Uniform("uLightDir"), light.X, light.Y, light.Z)
	gl.Uniform3f(p.Uniform("uSkyColor"), sky.R, sky.G, sky.B)
	gl.Uniform3f(p.Uniform("uGroundColor"), ground.R, ground.G, ground.B)
	gl.Uniform1i(p.Uniform("uDiffuseTexture"), 0)

	for _, m := range s.Meshes() {
		mat := m.Material
		alpha := float32(1)
		if mat != nil {
			alpha = mat.Alpha
		}
		if !m.IsVisible || m.Geometry.VertexCount() == 0 || alpha <= 0 {
			continue
		}

		buf := r.buffersFor(m)

		model := m.WorldMatrix()
		mvp := viewProj.Mul(model)
		gl.UniformMatrix4fv(p.Uniform("uMVP"), 1, false, mvp.Ptr())
		gl.UniformMatrix4fv(p.Uniform("uModel"), 1, false, model.Ptr())

		diffuse, ambient := math.White, math.Color3{}
		cull := true
		if mat != nil {
			diffuse = mat.DiffuseColor
			ambient = mat.AmbientColor
			cull = mat.BackFaceCulling
		}
		amb := ambient.Mul(s.AmbientColor)
		gl.Uniform3f(p.Uniform("uDiffuse"), diffuse.R, diffuse.G, diffuse.B)
		gl.Uniform3f(p.Uniform("uAmbient"), amb.R, amb.G, amb.B)
		gl.Uniform1f(p.Uniform("uAlpha"), alpha)

		tex := uint32(0)
		if mat.HasDiffuseTexture() && buf.hasUVs {
			tex = r.textureFor(mat.DiffuseTexture)
		}
		gl.ActiveTexture(gl.TEXTURE0)
		gl.BindTexture(gl.TEXTURE_2D, tex)
		if tex != 0 {
			gl.Uniform1i(p.Uniform("uHasTexture"), 1)
		} else {
			gl.Uniform1i(p.Uniform("uHasTexture"), 0)
		}

		if cull {
			gl.Enable(gl.CULL_FACE)
		} else {
			gl.Disable(gl.CULL_FACE)
		}
		if alpha < 1 {
			gl.Enable(gl.BLEND)
		} else {
			gl.Disable(gl.BLEND)
		}

		gl.BindVertexArray(buf.vao)
		if !buf.hasNormals {
			gl.VertexAttrib3f(1, 0, 1, 0)
		}
		gl.DrawElements(gl.TRIANGLES, buf.indexCount, gl.UNSIGNED_INT, nil)
	}

	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.CULL_FACE)
	gl.Disable(gl.BLEND)
}

// InvalidateTexture frees the texture loaded from url so the next frame
// loads it again.
func (r *Renderer) InvalidateTexture(url string) {
	id, ok := r.textures[url]
	if !ok {
		return
	}
	if id != 0 {
		gl.DeleteTextures(1, &id)
	}
	delete(r.textures, url)
	r.log.Debug("texture invalidated", zap.String("url", url))
}

// textureFor returns the GL texture for t, loading it on first use. A
// texture that fails to load is logged once and drawn untextured.
func (r *Renderer) textureFor(t *scene.Texture) uint32 {
	if id, ok := r.textures[t.URL]; ok {
		return id
	}
	r.textures[t.URL] = 0
	if r.textureSource == nil {
		return 0
	}

	data, err := r.textureSource(t.URL)
	if err != nil {
		r.log.Warn("failed to load texture", zap.String("url", t.URL), zap.Error(err))
		return 0
	}
	img, err := texture.Decode(t.URL, data)
	if err != nil {
		r.log.Warn("failed to decode texture", zap.String("url", t.URL), zap.Error(err))
		return 0
	}
	texture.FlipVertical(img)

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA,
		int32(img.Rect.Dx()), int32(img.Rect.Dy()), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)

	r.textures[t.URL] = id
	r.log.Debug("texture uploaded",
		zap.String("url", t.URL),
		zap.Int("width", img.Rect.Dx()),
		zap.Int("height", img.Rect.Dy()),
	)
	return id
}

// buffersFor uploads m's geometry on first use or after it was replaced.
func (r *Renderer) buffersFor(m *scene.Mesh) *meshBuffers {
	if buf, ok := r.meshes[m]; ok && buf.geometry == m.Geometry {
		return buf
	} else if ok {
		buf.delete()
	}

	g := m.Geometry
	buf := &meshBuffers{
		geometry:   g,
		indexCount: int32(len(g.Indices)),
		hasNormals: len(g.Normals) == len(g.Positions),
		hasUVs:     g.HasUVs(),
	}

	gl.GenVertexArrays(1, &buf.vao)
	gl.BindVertexArray(buf.vao)

	gl.GenBuffers(1, &buf.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(g.Positions)*4, gl.Ptr(g.Positions), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)

	if buf.hasNormals {
		gl.GenBuffers(1, &buf.nbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.nbo)
		gl.BufferData(gl.ARRAY_BUFFER, len(g.Normals)*4, gl.Ptr(g.Normals), gl.STATIC_DRAW)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 3*4, nil)
		gl.EnableVertexAttribArray(1)
	}

	if buf.hasUVs {
		gl.GenBuffers(1, &buf.tbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, buf.tbo)
		gl.BufferData(gl.ARRAY_BUFFER, len(g.UVs)*4, gl.Ptr(g.UVs), gl.STATIC_DRAW)
		gl.VertexAttribPointer(2, 2, gl.FLOAT, false, 2*4, nil)
		gl.EnableVertexAttribArray(2)
	}

	gl.GenBuffers(1, &buf.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.ebo)
	if len(g.Indices) > 0 {
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(g.Indices)*4, gl.Ptr(g.Indices), gl.STATIC_DRAW)
	}

	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	r.meshes[m] = buf
	r.log.Debug("mesh uploaded",
		zap.String("mesh", m.Name),
		zap.Int("vertices", g.VertexCount()),
		zap.Int32("indices", buf.indexCount),
	)
	return buf
}

// pruneMeshes frees buffers of meshes no longer in s.
func (r *Renderer) pruneMeshes(s *scene.Scene) {
	live := s.Meshes()
	for m, buf := range r.meshes {
		if !slices.Contains(live, m) {
			buf.delete()
			delete(r.meshes, m)
		}
	}
}

func (b *meshBuffers) delete() {
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteBuffers(1, &b.vbo)
	if b.nbo != 0 {
		gl.DeleteBuffers(1, &b.nbo)
	}
	if b.tbo != 0 {
		gl.DeleteBuffers(1, &b.tbo)
	}
	gl.DeleteBuffers(1, &b.ebo)
}

func (r *Renderer) createLineBuffer() {
	gl.GenVertexArrays(1, &r.lineVAO)
	gl.BindVertexArray(r.lineVAO)
	gl.GenBuffers(1, &r.lineVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

// drawColliders outlines the collision ellipsoid of every collidable,
// non-ground mesh.
func (r *Renderer) drawColliders(s *scene.Scene, viewProj math.Mat4) {
	var verts []float32
	for _, m := range s.Meshes() {
		if !m.CheckCollisions || m.IsGround() {
			continue
		}
		verts = append(verts, debug.ColliderBoxVertices(m.Position.Add(m.EllipsoidOffset), m.Ellipsoid)...)
	}
	if len(verts) == 0 {
		return
	}

	r.lineProgram.Use()
	gl.UniformMatrix4fv(r.lineProgram.Uniform("uViewProj"), 1, false, viewProj.Ptr())
	gl.Uniform4f(r.lineProgram.Uniform("uColor"), 0, 1, 0, 1)

	gl.BindVertexArray(r.lineVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.lineVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(verts)*4, gl.Ptr(verts), gl.STREAM_DRAW)
	gl.DrawArrays(gl.LINES, 0, int32(len(verts)/3))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
}

func (r *Renderer) createOverlayQuad() {
	// Unit quad, xy + uv, top-left origin.
	quad := []float32{
		0, 0, 0, 0,
		1, 0, 1, 0,
		1, 1, 1, 1,
		0, 0, 0, 0,
		1, 1, 1, 1,
		0, 1, 0, 1,
	}
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.BindVertexArray(r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, 4*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, 4*4, unsafe.Pointer(uintptr(2*4)))
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)

	gl.GenTextures(1, &r.overlayTex)
	gl.BindTexture(gl.TEXTURE_2D, r.overlayTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// drawOverlay draws the debug text panel in the top-left corner. The
// texture is only re-rasterized when the text changes.
func (r *Renderer) drawOverlay(lines []string) {
	if !slices.Equal(lines, r.overlayText) {
		r.overlayText = slices.Clone(lines)
		img := debug.Rasterize(lines)
		if img == nil {
			r.overlayW, r.overlayH = 0, 0
		} else {
			r.overlayW, r.overlayH = img.Bounds().Dx(), img.Bounds().Dy()
			gl.BindTexture(gl.TEXTURE_2D, r.overlayTex)
			gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
			gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(r.overlayW), int32(r.overlayH), 0,
				gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
			gl.BindTexture(gl.TEXTURE_2D, 0)
		}
	}
	if r.overlayW == 0 || r.width == 0 || r.height == 0 {
		return
	}

	const margin = 8
	p := r.overlayProgram
	p.Use()
	gl.Uniform4f(p.Uniform("uRect"),
		float32(margin)/float32(r.width),
		float32(margin)/float32(r.height),
		float32(r.overlayW)/float32(r.width),
		float32(r.overlayH)/float32(r.height),
	)
	gl.Uniform1i(p.Uniform("uTexture"), 0)

	gl.Disable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.overlayTex)
	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.Disable(gl.BLEND)
	gl.Enable(gl.DEPTH_TEST)
}

// ReadFramebuffer reads back the current frame as bottom-up RGBA rows.
func (r *Renderer) ReadFramebuffer() ([]byte, int, int) {
	pixels := make([]byte, r.width*r.height*4)
	if len(pixels) == 0 {
		return nil, 0, 0
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(r.width), int32(r.height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pixels))
	return pixels, r.width, r.height
}

// Close releases all GPU resources. Calling it again does nothing.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.log.Info("closing renderer")
	for m, buf := range r.meshes {
		buf.delete()
		delete(r.meshes, m)
	}
	for url, id := range r.textures {
		if id != 0 {
			gl.DeleteTextures(1, &id)
		}
		delete(r.textures, url)
	}
	if r.lineVAO != 0 {
		gl.DeleteVertexArrays(1, &r.lineVAO)
		gl.DeleteBuffers(1, &r.lineVBO)
		r.lineVAO, r.lineVBO = 0, 0
	}
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
		gl.DeleteBuffers(1, &r.quadVBO)
		gl.DeleteTextures(1, &r.overlayTex)
		r.quadVAO, r.quadVBO, r.overlayTex = 0, 0, 0
	}
	for _, p := range []*shader.Program{r.meshProgram, r.lineProgram, r.overlayProgram} {
		if p != nil {
			p.Delete()
		}
	}
	r.meshProgram, r.lineProgram, r.overlayProgram = nil, nil, nil
}
