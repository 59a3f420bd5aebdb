package stack

// Template keys follow <category>/<technology>/<filename>.

type javaBackend struct{}

func (javaBackend) ID() string       { return "java" }
func (javaBackend) Label() string    { return "Java (Spring Boot)" }
func (javaBackend) DefaultPort() int { return 8080 }
func (javaBackend) sealedBackend()   {}

func (b javaBackend) Files(n Names, docker bool) []File {
	src := "backend/src/main/java/" + n.PackagePath()
	files := []File{
		{Path: "backend/pom.xml", Template: "backend/java/pom.xml"},
		{Path: src + "/Application.java", Template: "backend/java/Application.java"},
		{Path: src + "/controller/HelloController.java", Template: "backend/java/HelloController.java"},
		{Path: "backend/src/main/resources/application.yml", Template: "backend/java/application.yml"},
	}
	return withBackendCommon(files, b, docker)
}

type pythonBackend struct{}

func (pythonBackend) ID() string       { return "python" }
func (pythonBackend) Label() string    { return "Python (Django)" }
func (pythonBackend) DefaultPort() int { return 8000 }
func (pythonBackend) sealedBackend()   {}

func (b pythonBackend) Files(n Names, docker bool) []File {
	pkg := "backend/" + n.Safe
	files := []File{
		{Path: "backend/requirements.txt", Template: "backend/python/requirements.txt"},
		{Path: "backend/manage.py", Template: "backend/python/manage.py"},
		{Path: pkg + "/__init__.py", Template: "backend/python/__init__.py"},
		{Path: pkg + "/settings.py", Template: "backend/python/settings.py"},
		{Path: pkg + "/urls.py", Template: "backend/python/urls.py"},
		{Path: pkg + "/wsgi.py", Template: "backend/python/wsgi.py"},
		{Path: "backend/api/__init__.py", Template: "backend/python/__init__.py"},
		{Path: "backend/api/urls.py", Template: "backend/python/api_urls.py"},
		{Path: "backend/api/views.py", Template: "backend/python/views.py"},
	}
	return withBackendCommon(files, b, docker)
}

type csharpBackend struct{}

func (csharpBackend) ID() string       { return "csharp" }
func (csharpBackend) Label() string    { return "C# (.NET 8)" }
func (csharpBackend) DefaultPort() int { return 8080 }
func (csharpBackend) sealedBackend()   {}

func (b csharpBackend) Files(n Names, docker bool) []File {
	files := []File{
		{Path: "backend/" + n.Safe + ".csproj", Template: "backend/csharp/Project.csproj"},
		{Path: "backend/Program.cs", Template: "backend/csharp/Program.cs"},
		{Path: "backend/Controllers/HelloController.cs", Template: "backend/csharp/HelloController.cs"},
		{Path: "backend/Data/AppDbContext.cs", Template: "backend/csharp/AppDbContext.cs"},
		{Path: "backend/appsettings.json", Template: "backend/csharp/appsettings.json"},
	}
	return withBackendCommon(files, b, docker)
}

func withBackendCommon(files []File, b Backend, docker bool) []File {
	dir := "backend/" + b.ID() + "/"
	if docker {
		files = append(files, File{Path: "backend/Dockerfile", Template: dir + "Dockerfile"})
	}
	return append(files, File{Path: "backend/README.md", Template: dir + "README.md"})
}

type reactFrontend struct{}

func (reactFrontend) ID() string      { return "react" }
func (reactFrontend) Label() string   { return "React" }
func (reactFrontend) sealedFrontend() {}

func (f reactFrontend) Files(_ Names, docker bool) []File {
	return withFrontendCommon([]File{
		{Path: "frontend/package.json", Template: "frontend/react/package.json"},
		{Path: "frontend/vite.config.js", Template: "frontend/react/vite.config.js"},
		{Path: "frontend/index.html", Template: "frontend/react/index.html"},
		{Path: "frontend/src/main.jsx", Template: "frontend/react/main.jsx"},
		{Path: "frontend/src/App.jsx", Template: "frontend/react/App.jsx"},
		{Path: "frontend/src/index.css", Template: "frontend/react/index.css"},
	}, f, docker)
}

type vueFrontend struct{}

func (vueFrontend) ID() string      { return "vue" }
func (vueFrontend) Label() string   { return "Vue.js" }
func (vueFrontend) sealedFrontend() {}

func (f vueFrontend) Files(_ Names, docker bool) []File {
	return withFrontendCommon([]File{
		{Path: "frontend/package.json", Template: "frontend/vue/package.json"},
		{Path: "frontend/vite.config.js", Template: "frontend/vue/vite.config.js"},
		{Path: "frontend/index.html", Template: "frontend/vue/index.html"},
		{Path: "frontend/src/main.js", Template: "frontend/vue/main.js"},
		{Path: "frontend/src/App.vue", Template: "frontend/vue/App.vue"},
		{Path: "frontend/src/style.css", Template: "frontend/vue/style.css"},
	}, f, docker)
}

type angularFrontend struct{}

func (angularFrontend) ID() string      { return "angular" }
func (angularFrontend) Label() string   { return "Angular" }
func (angularFrontend) sealedFrontend() {}

func (f angularFrontend) Files(_ Names, docker bool) []File {
	return withFrontendCommon([]File{
		{Path: "frontend/package.json", Template: "frontend/angular/package.json"},
		{Path: "frontend/angular.json", Template: "frontend/angular/angular.json"},
		{Path: "frontend/src/index.html", Template: "frontend/angular/index.html"},
		{Path: "frontend/src/main.ts", Template: "frontend/angular/main.ts"},
		{Path: "frontend/src/app/app.component.ts", Template: "frontend/angular/app.component.ts"},
	}, f, docker)
}

func withFrontendCommon(files []File, f Frontend, docker bool) []File {
	dir := "frontend/" + f.ID() + "/"
	if docker {
		files = append(files,
			File{Path: "frontend/Dockerfile", Template: dir + "Dockerfile"},
			File{Path: "frontend/nginx.conf", Template: dir + "nginx.conf"},
		)
	}
	return append(files, File{Path: "frontend/README.md", Template: dir + "README.md"})
}
