package tray

import "fyne.io/fyne/v2"

// svgIcon is a dashed selection frame over text lines.
const svgIcon = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 16 16" width="16" height="16">
  <rect x="1.5" y="1.5" width="13" height="13" fill="none" stroke="#d62828" stroke-width="1.2" stroke-dasharray="2,1.5"/>
  <line x1="4" y1="5.5" x2="12" y2="5.5" stroke="#333333" stroke-width="1.2" stroke-linecap="round"/>
  <line x1="4" y1="8" x2="10.5" y2="8" stroke="#333333" stroke-width="1.2" stroke-linecap="round"/>
  <line x1="4" y1="10.5" x2="11.5" y2="10.5" stroke="#333333" stroke-width="1.2" stroke-linecap="round"/>
</svg>`

// Icon is the application and tray icon.
var Icon fyne.Resource = fyne.NewStaticResource("sniptext.svg", []byte(svgIcon))
