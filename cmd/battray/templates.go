package main

import "fmt"

// desktopEntry renders the XDG desktop entry used for both the
// autostart file and the application menu entry.
func desktopEntry(binPath string) string {
	return fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=Battray
GenericName=Battery Indicator
Comment=Battery status indicator for the system tray
Exec=%s
Icon=battery
Terminal=false
Categories=System;Monitor;
X-GNOME-Autostart-enabled=true
`, binPath)
}
