package compose

import (
	"strings"
	"testing"

	"bento-pro-server/modules/catalog"
)

func baseStyle() catalog.StyleSelection {
	return catalog.StyleSelection{
		Background:     catalog.BackgroundWhite,
		Angle:          catalog.AngleOverhead,
		Lighting:       catalog.LightingStudio,
		Margin:         catalog.MarginStandard,
		Rotation:       catalog.RotationFrontal,
		AspectRatio:    catalog.AspectSquare,
		ContainerClean: catalog.CleanNone,
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	style := baseStyle()

	first, err := Compose(style, "A two-tier bento with rice and karaage.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	second, err := Compose(style, "A two-tier bento with rice and karaage.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if first.Generation != second.Generation {
		t.Fatal("generation prompt differs between identical invocations")
	}
	if first.Informational != second.Informational {
		t.Fatal("informational prompt differs between identical invocations")
	}
}

func TestComposeGenerationSectionOrder(t *testing.T) {
	prompts, err := Compose(baseStyle(), "Rice, tamagoyaki, broccoli.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	sections := []string{
		"Refine this specific image",
		"**CRITICAL CONSTRAINTS - MUST FOLLOW EXACTLY:**",
		"**[Crucial: Orientation & Alignment]**",
		"**[Camera Angle & Perspective]**",
		"**[Environment & Composition]**",
		"**[Lighting & Style]**",
		"**[Contents Description]**",
		"**[Output Format]**",
	}

	prev := -1
	for _, section := range sections {
		idx := strings.Index(prompts.Generation, section)
		if idx < 0 {
			t.Fatalf("generation prompt missing section %q", section)
		}
		if idx <= prev {
			t.Fatalf("section %q out of order (index %d, previous %d)", section, idx, prev)
		}
		prev = idx
	}
}

func TestComposeAspectClauseIsLast(t *testing.T) {
	prompts, err := Compose(baseStyle(), "Rice and salmon.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if !strings.HasSuffix(prompts.Generation, "(width equals height).") {
		t.Fatalf("generation prompt does not end with the 1:1 output format clause:\n...%s",
			prompts.Generation[len(prompts.Generation)-80:])
	}
	if !strings.Contains(prompts.Generation, "1:1 aspect ratio") {
		t.Fatal("generation prompt missing 1:1 aspect clause")
	}
}

func TestComposeContainerCleanOnlyWhenRequested(t *testing.T) {
	style := baseStyle()

	without, err := Compose(style, "Rice and salmon.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if strings.Contains(without.Generation, "CONTAINER CLEANING:") {
		t.Fatal("cleanup instruction present without being requested")
	}

	style.ContainerClean = catalog.CleanRequested
	with, err := Compose(style, "Rice and salmon.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.Contains(with.Generation, "CONTAINER CLEANING:") {
		t.Fatal("cleanup instruction missing although requested")
	}
	// 清掃指示は内容説明より前に置く
	if strings.Index(with.Generation, "CONTAINER CLEANING:") > strings.Index(with.Generation, "**[Contents Description]**") {
		t.Fatal("cleanup instruction placed after contents description")
	}
}

func TestComposeInformationalExcludesGenerationOnlySections(t *testing.T) {
	style := baseStyle()
	style.ContainerClean = catalog.CleanRequested

	prompts, err := Compose(style, "Rice and salmon.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if !strings.HasPrefix(prompts.Informational, "Professional commercial food photography.") {
		t.Fatal("informational prompt has wrong opening")
	}
	for _, forbidden := range []string{"CONTAINER CLEANING:", "**[Output Format]**", "CRITICAL CONSTRAINTS"} {
		if strings.Contains(prompts.Informational, forbidden) {
			t.Fatalf("informational prompt unexpectedly contains %q", forbidden)
		}
	}
}

func TestComposeStyleAxesReachThePrompt(t *testing.T) {
	style := catalog.StyleSelection{
		Background:     catalog.BackgroundMarble,
		Angle:          catalog.AngleAngled45,
		Lighting:       catalog.LightingDramatic,
		Margin:         catalog.MarginWide,
		Rotation:       catalog.RotationDiagonal,
		AspectRatio:    catalog.AspectLandscape,
		ContainerClean: catalog.CleanNone,
	}

	prompts, err := Compose(style, "Onigiri and pickles.")
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	for _, want := range []string{
		"elegant marble table surface",
		"30-40 degrees from horizontal",
		"Dramatic side lighting",
		"Ample negative space",
		"45 degrees CLOCKWISE",
		"4:3 aspect ratio",
		"Onigiri and pickles.",
	} {
		if !strings.Contains(prompts.Generation, want) {
			t.Errorf("generation prompt missing %q", want)
		}
	}
}

func TestComposeRejectsInvalidInput(t *testing.T) {
	style := baseStyle()
	style.Background = "neon"
	if _, err := Compose(style, "Rice."); err == nil {
		t.Fatal("expected error for unknown background")
	}

	if _, err := Compose(baseStyle(), "   "); err == nil {
		t.Fatal("expected error for empty analyzed content")
	}
}
