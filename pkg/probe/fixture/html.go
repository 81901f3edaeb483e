package fixture

import "html/template"

// DefaultSource is the video used when the caller does not provide one.
const DefaultSource = "https://storage.googleapis.com/media-session/big-buck-bunny/trailer.mov"

// pageTemplate is the HTML document the probe runs against. It wires the
// video element to status-reporting hooks the metrics queries depend on:
// a #status string, a window.videoReady flag set on canplay, and a
// quality-selector stub whose options only log and close the panel.
var pageTemplate = template.Must(template.New("fixture").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Video Probe Fixture</title>
    <style>
        .container { max-width: 800px; margin: 20px auto; padding: 20px; }
        #status { margin: 10px 0; font-family: monospace; }
        .video-wrapper { position: relative; }
        video { width: 100%; }
        .quality-selector { position: absolute; bottom: 10px; right: 10px; background: rgba(0,0,0,0.7);
                            color: white; padding: 5px 10px; cursor: pointer; border: none; }
        .quality-options { display: none; position: absolute; bottom: 40px; right: 10px;
                           background: rgba(0,0,0,0.7); }
        .quality-option { color: white; padding: 5px 10px; cursor: pointer; }
    </style>
</head>
<body>
    <div class="container">
        <div id="status">Loading video...</div>
        <div class="video-wrapper">
            <video controls muted playsinline>
                <source src="{{.Source}}" type="video/mp4">
                Your browser does not support the video tag.
            </video>
            <button class="quality-selector">Quality</button>
            <div class="quality-options">
                <div class="quality-option">1080p</div>
                <div class="quality-option">720p</div>
                <div class="quality-option">480p</div>
            </div>
        </div>
    </div>
    <script>
        const video = document.querySelector('video');
        const status = document.querySelector('#status');

        window.videoReady = false;

        video.addEventListener('loadedmetadata', () => {
            status.textContent = 'Video metadata loaded';
        });

        video.addEventListener('canplay', () => {
            status.textContent = 'Video ready to play';
            window.videoReady = true;
        });

        video.addEventListener('error', () => {
            status.textContent = 'Error loading video: ' + (video.error ? video.error.message : 'unknown error');
        });

        const qualitySelector = document.querySelector('.quality-selector');
        const qualityOptions = document.querySelector('.quality-options');
        qualitySelector.addEventListener('click', () => {
            qualityOptions.style.display = qualityOptions.style.display === 'block' ? 'none' : 'block';
        });
        document.querySelectorAll('.quality-option').forEach(option => {
            option.addEventListener('click', () => {
                console.log('Changing quality to ' + option.textContent);
                qualityOptions.style.display = 'none';
            });
        });
    </script>
</body>
</html>
`))
