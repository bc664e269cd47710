// Package color holds the terminal palette used by bringupctl's table output.
//
// Colors are lipgloss.AdaptiveColor values, so each one has a light and a
// dark variant. Call Initialize once at startup when the background is known;
// otherwise lipgloss detects it on first use.
//
// Record kinds have their own styles:
//
//	fmt.Println(color.ProcessStyle.Render("process"))
//	fmt.Println(color.ComponentStyle.Render("component"))
//	fmt.Println(color.FragmentStyle.Render("fragment"))
//
// When output is not a terminal lipgloss drops the escape codes, so the same
// rendering code produces plain text for pipes and tests.
package color
