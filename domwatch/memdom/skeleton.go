package memdom

// SkeletonPage is the minimal game layout: every anchor present, nothing
// shown, no players. Replay mode starts from it when no page is given.
const SkeletonPage = `<!DOCTYPE html>
<html><head><title>skribbl</title></head><body>
<div id="screenGame">
  <div class="containerGame">
    <div id="containerGamePlayers"></div>
    <div id="containerBoard">
      <div id="overlay" style="display: none;"><div class="wordContainer" style="display: none;"></div></div>
      <canvas id="canvasGame"></canvas>
    </div>
    <div class="containerToolbar" style="display: none;"></div>
    <div id="currentWord"></div>
    <div id="boxChat"><div id="boxMessages"></div></div>
  </div>
</div>
</body></html>`

// NewSkeleton parses SkeletonPage.
func NewSkeleton() *Document {
	d, err := ParseString(SkeletonPage)
	if err != nil {
		panic("memdom: skeleton page: " + err.Error())
	}
	return d
}
