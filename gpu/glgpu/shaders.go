package glgpu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// fullscreenVertexShader emits one triangle covering the target. vUv is
// the normalized target coordinate.
const fullscreenVertexShader = `
#version 330 core

const vec2 positions[3] = vec2[](
    vec2(-1.0, -1.0),
    vec2( 3.0, -1.0),
    vec2(-1.0,  3.0)
);

out vec2 vUv;

void main() {
    vec2 pos = positions[gl_VertexID];
    vUv = pos * 0.5 + 0.5;
    gl_Position = vec4(pos, 0.0, 1.0);
}
`

const presentFragmentShader = `
#version 330 core

in vec2 vUv;
uniform sampler2D frame;
out vec4 fragColor;

void main() {
    fragColor = vec4(texture(frame, vUv).rgb, 1.0);
}
`

// compileShader compiles a single shader stage.
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(strings.TrimLeft(source, "\n") + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, max(1, logLength))
		gl.GetShaderInfoLog(shader, logLength, nil, &log[0])
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(string(log), "\x00"))
	}
	return shader, nil
}

// linkProgram compiles and links a vertex/fragment pair.
func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex shader: %w", err)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, fmt.Errorf("fragment shader: %w", err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)
	gl.DetachShader(program, vs)
	gl.DetachShader(program, fs)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := make([]byte, max(1, logLength))
		gl.GetProgramInfoLog(program, logLength, nil, &log[0])
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("link failed: %s", strings.TrimRight(string(log), "\x00"))
	}
	return program, nil
}

// parseShaderLevel turns a GL_SHADING_LANGUAGE_VERSION string such as
// "3.30 NVIDIA via Cg compiler" or "4.6" into 330 or 460.
func parseShaderLevel(s string) int {
	s, _, _ = strings.Cut(strings.TrimSpace(s), " ")
	major, minor, ok := strings.Cut(s, ".")
	if !ok || minor == "" {
		return 0
	}
	if len(minor) == 1 {
		minor += "0"
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return 0
	}
	mnr, err := strconv.Atoi(minor[:2])
	if err != nil {
		return 0
	}
	return maj*100 + mnr
}
