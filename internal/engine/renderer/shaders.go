package renderer

const meshVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;

uniform mat4 uMVP;
uniform mat4 uModel;

out vec3 vNormal;
out vec2 vTexCoord;

void main() {
    vNormal = mat3(uModel) * aNormal;
    vTexCoord = aTexCoord;
    gl_Position = uMVP * vec4(aPosition, 1.0);
}
`

// Hemispheric lighting: sky color along uLightDir, ground color opposite.
const meshFragmentShader = `
#version 410 core

in vec3 vNormal;
in vec2 vTexCoord;

uniform vec3 uLightDir;
uniform vec3 uSkyColor;
uniform vec3 uGroundColor;
uniform vec3 uDiffuse;
uniform vec3 uAmbient;
uniform float uAlpha;
uniform sampler2D uDiffuseTexture;
uniform bool uHasTexture;

out vec4 FragColor;

void main() {
    vec3 base = uDiffuse;
    float alpha = uAlpha;
    if (uHasTexture) {
        vec4 texel = texture(uDiffuseTexture, vTexCoord);
        base *= texel.rgb;
        alpha *= texel.a;
    }
    float t = dot(normalize(vNormal), uLightDir) * 0.5 + 0.5;
    vec3 hemi = mix(uGroundColor, uSkyColor, t);
    vec3 color = base * hemi + uAmbient * base;
    FragColor = vec4(min(color, vec3(1.0)), alpha);
}
`

const lineVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPosition;

uniform mat4 uViewProj;

void main() {
    gl_Position = uViewProj * vec4(aPosition, 1.0);
}
`

const lineFragmentShader = `
#version 410 core

uniform vec4 uColor;

out vec4 FragColor;

void main() {
    FragColor = uColor;
}
`

// uRect is x, y, width, height in viewport fractions from the top-left.
const overlayVertexShader = `
#version 410 core

layout (location = 0) in vec2 aPosition;
layout (location = 1) in vec2 aTexCoord;

uniform vec4 uRect;

out vec2 vTexCoord;

void main() {
    vec2 p = uRect.xy + aPosition * uRect.zw;
    gl_Position = vec4(p.x * 2.0 - 1.0, 1.0 - p.y * 2.0, 0.0, 1.0);
    vTexCoord = aTexCoord;
}
`

const overlayFragmentShader = `
#version 410 core

in vec2 vTexCoord;

uniform sampler2D uTexture;

out vec4 FragColor;

void main() {
    FragColor = texture(uTexture, vTexCoord);
}
`
