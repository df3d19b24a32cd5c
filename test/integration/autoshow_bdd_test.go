//go:build integration

package integration

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/eliteGoblin/panelmon/internal/config"
	"github.com/eliteGoblin/panelmon/internal/domain"
	"github.com/eliteGoblin/panelmon/test/fixtures"
)

var _ = Describe("Auto Show Pipeline", func() {
	var (
		scene *fixtures.Scene
		p     *pipeline
	)

	BeforeEach(func() {
		scene = fixtures.NewScene()
		p = newPipeline(scene)
		p.applyDefaults(nil)
		p.start()
		Eventually(scene.Source.IsRunning, "2s", "10ms").Should(BeTrue())
	})

	AfterEach(func() {
		p.stop()
	})

	Describe("deliberate click on a text field", func() {
		It("shows the panel", func() {
			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)

			Eventually(scene.Renderer.IsVisible, "2s", "10ms").Should(BeTrue())
			Expect(scene.Renderer.ShowCount()).To(Equal(1))
		})

		It("returns focus to the application after showing", func() {
			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)

			Eventually(scene.Renderer.IsVisible, "2s", "10ms").Should(BeTrue())
			Eventually(scene.Desktop.Foreground, "2s", "10ms").Should(Equal(fixtures.EditorWindow))
		})

		It("accepts touch presses on a browser address bar", func() {
			scene.PressAndFocus(fixtures.BrowserFieldPoint, fixtures.BrowserWindow, domain.DeviceTouch)

			Eventually(scene.Renderer.IsVisible, "2s", "10ms").Should(BeTrue())
		})
	})

	Describe("programmatic focus with no pointer press", func() {
		It("keeps the panel hidden", func() {
			scene.FocusOnly(fixtures.EditorWindow)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("click on a toolbar button", func() {
		It("keeps the panel hidden", func() {
			scene.PressAndFocus(fixtures.ToolbarButtonPoint, fixtures.ToolbarWindow, domain.DeviceMouse)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("click on a read-only edit control", func() {
		It("keeps the panel hidden", func() {
			scene.PressAndFocus(fixtures.ReadonlyFieldPoint, fixtures.ReadonlyWindow, domain.DeviceMouse)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("click on a blacklisted system process", func() {
		It("keeps the panel hidden", func() {
			scene.PressAndFocus(fixtures.SearchFieldPoint, fixtures.SearchWindow, domain.DeviceMouse)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("injected input", func() {
		It("keeps the panel hidden", func() {
			// Both the click evaluation and the focus evaluation query the
			// input source.
			scene.Input.Push(
				domain.InputSourceVerdict{Origin: domain.SourceInjected, Device: domain.DeviceMouse},
				domain.InputSourceVerdict{Origin: domain.SourceInjected, Device: domain.DeviceMouse},
			)
			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("typing in progress", func() {
		It("suppresses the auto-show", func() {
			p.applyDefaults(func(c *config.Config) { c.AutoShow.TypingSuppressMs = 60000 })

			scene.Source.EmitKey(0x41, false)
			time.Sleep(50 * time.Millisecond)
			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)

			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("a second trigger inside the debounce window", func() {
		It("does not show the panel again", func() {
			p.applyDefaults(func(c *config.Config) { c.AutoShow.DebounceMs = 60000 })

			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)
			Eventually(scene.Renderer.IsVisible, "2s", "10ms").Should(BeTrue())

			p.controller.Hide()
			Expect(scene.Renderer.IsVisible()).To(BeFalse())

			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)
			Consistently(scene.Renderer.IsVisible, "300ms", "20ms").Should(BeFalse())
		})
	})

	Describe("OS rejecting direct foreground claims", func() {
		It("restores focus through input queue attachment", func() {
			scene.Desktop.DenyDirectForeground(true)

			scene.PressAndFocus(fixtures.EditorFieldPoint, fixtures.EditorWindow, domain.DeviceMouse)

			Eventually(scene.Renderer.IsVisible, "2s", "10ms").Should(BeTrue())
			Eventually(scene.Desktop.Foreground, "2s", "10ms").Should(Equal(fixtures.EditorWindow))
		})
	})

	Describe("manual toggle", func() {
		It("shows and hides while preserving focus", func() {
			p.controller.Toggle()
			Expect(scene.Renderer.IsVisible()).To(BeTrue())
			Expect(scene.Desktop.Foreground()).To(Equal(fixtures.EditorWindow))

			p.controller.Toggle()
			Expect(scene.Renderer.IsVisible()).To(BeFalse())
		})
	})
})

var _ = Describe("Hook install failure", func() {
	It("leaves the panel manually toggleable", func() {
		scene := fixtures.NewScene()
		scene.Source.SetStartError(&domain.HookError{Stage: "mouse", Err: errors.New("install denied")})

		p := newPipeline(scene)
		p.applyDefaults(nil)
		p.start()
		defer p.stop()

		Consistently(scene.Source.IsRunning, "200ms", "20ms").Should(BeFalse())

		p.controller.Toggle()
		Expect(scene.Renderer.IsVisible()).To(BeTrue())
		Expect(scene.Desktop.Foreground()).To(Equal(fixtures.EditorWindow))
	})
})
