package avatar

import "github.com/Carmen-Shannon/oxy-rig/common"

// Tattoo is a decoded decal texture waiting for the renderer to composite it.
type Tattoo struct {
	// Name is the source texture's name.
	Name string

	// Texture is the decoded RGBA data.
	Texture common.TextureStagingData

	// Sampler is the sampler the renderer should bind with the texture.
	Sampler common.SamplerStagingData
}

func (a *avatar) SetTattoo(slot string, tex *common.ImportedTexture) {
	if a.rejectDisposed("SetTattoo") {
		return
	}
	if tex == nil {
		a.ClearTattoo(slot)
		return
	}
	data, err := tex.Decode()
	if err != nil {
		a.logger.Warn("avatar: ignoring undecodable tattoo", "slot", slot, "error", err)
		return
	}
	sampler := common.DecalSampler()
	if tex.SamplerData != nil {
		sampler = *tex.SamplerData
	}
	a.tattoos[slot] = Tattoo{Name: tex.Name, Texture: data, Sampler: sampler}
	a.NotifyRebuild()
}

func (a *avatar) ClearTattoo(slot string) {
	if a.rejectDisposed("ClearTattoo") {
		return
	}
	if _, ok := a.tattoos[slot]; !ok {
		return
	}
	delete(a.tattoos, slot)
	a.NotifyRebuild()
}

func (a *avatar) Tattoo(slot string) (Tattoo, bool) {
	t, ok := a.tattoos[slot]
	return t, ok
}
