package gpu

// blendShader folds all feature layers into the base height per pixel,
// mirroring the CPU blend semantics exactly: same mode arithmetic, same
// minimum influence threshold, same list-order folding.
const blendShader = `
struct Params {
    width: u32,
    height: u32,
    count: u32,
    base: f32,
};

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read> layers: array<f32>;
@group(0) @binding(2) var<storage, read> influences: array<f32>;
@group(0) @binding(3) var<storage, read> blends: array<vec2<f32>>;
@group(0) @binding(4) var<storage, read_write> result: array<f32>;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height) {
        return;
    }
    let idx = gid.y * params.width + gid.x;
    let n = params.width * params.height;

    var acc = params.base;
    for (var i = 0u; i < params.count; i = i + 1u) {
        let w = influences[i * n + idx];
        if (w < 0.001) {
            continue;
        }
        let h = layers[i * n + idx];
        let mode = u32(blends[i].x);
        let s = blends[i].y;
        switch (mode) {
            case 0u: { acc = acc + h * w * s; }
            case 1u: { acc = acc - h * w * s; }
            case 2u: { acc = max(acc, h * w); }
            case 3u: { acc = min(acc, h * w); }
            case 4u: { acc = acc * (1.0 + h * w * s); }
            case 5u: { if (s != 0.0) { acc = (acc + h * w * s) * 0.5; } }
            default: {}
        }
    }
    result[idx] = acc;
}
`
